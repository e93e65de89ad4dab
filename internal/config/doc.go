// Package config loads, normalizes, and validates vcfmerge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the pipeline and CLI need: input/output locations, phone validation
// thresholds, conflict preference lists, mojibake replacements, and logging
// shape.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical preference lists, and clear validation errors.
package config
