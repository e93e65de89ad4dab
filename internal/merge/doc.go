// Package merge combines contact records. The engine reconciles two records
// for the same person field by field: clean values beat mojibake-damaged
// ones, real birthdays beat the placeholder, repeatable fields union, and
// configured side preferences settle the rest. The deduplicator applies the
// engine across a whole record set, folding every group of records whose
// names normalize to the same identity key down to one.
//
// List unions keep near-duplicate payloads (the same number formatted two
// ways) on purpose; the writer collapses those with its own normalized
// comparisons. Collapsing here would change which spelling survives.
package merge
