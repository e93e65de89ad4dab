// Package vcard holds the contact data model and the format primitives that
// everything else builds on: the Record type with its closed field set plus
// extension passthrough, tagged values carrying verbatim parameter segments,
// the logical-line unfolder, and the transport-encoding value decoder.
//
// The package is deliberately free of file I/O and policy. Parsing policy
// lives in internal/ingest, merge policy in internal/merge; this package only
// defines what a contact is and how raw field text becomes usable values.
package vcard
