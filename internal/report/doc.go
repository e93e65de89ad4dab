// Package report inspects a finished run from the outside: the validator
// line-scans the written card file for residual problems an importer would
// trip over, and the auditor compares field population per identity across
// the source, update, and final record sets. Both render human-readable text
// artifacts placed next to the output file.
package report
