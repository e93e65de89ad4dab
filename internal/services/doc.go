// Package services defines shared utilities consumed by the pipeline phases.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, phase names, and contact
//     identities for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent exit codes (configuration mistakes vs runtime failures).
//
// Use these helpers when wiring new phase logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
