// Package ingest reads card files into records. The parser unfolds physical
// lines, decodes transport encodings, repairs mojibake, and assembles cards
// through a small state machine; free-text note mining then promotes contact
// data that exporters buried in NOTE lines (emails, phone numbers, postal
// addresses) into their structured fields before the record is stored.
//
// Parsing is deliberately forgiving: malformed lines are skipped, failed
// extractions keep their source text, and a file that is not valid UTF-8 is
// reprocessed once under the configured single-byte fallback charset. No
// field-level anomaly is ever fatal.
package ingest
