// Package pipeline sequences one merge run: lock, backup, both ingests,
// the name-keyed merge, duplicate folding, export, and the optional
// post-run reports. Stages run strictly in order and share one repairer
// so every stage sees identical text.
package pipeline
