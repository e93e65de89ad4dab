package vcard

import (
	"sort"
	"strings"
)

// Canonical field names as they appear in card files.
const (
	FieldStructuredName = "N"
	FieldFormattedName  = "FN"
	FieldBirthday       = "BDAY"
	FieldTitle          = "TITLE"
	FieldPhone          = "TEL"
	FieldEmail          = "EMAIL"
	FieldAddress        = "ADR"
	FieldOrg            = "ORG"
	FieldNote           = "NOTE"
)

// UnknownYear is the sentinel used when a birthday carries no year. Merge
// logic must never replace a real year with it.
const UnknownYear = "1900"

// NoBirthday is the placeholder written for records without a birthday.
const NoBirthday = "1900-01-01"

// Record is one contact: a closed set of known fields plus an extensions map
// for unrecognized keys. Repeatable fields keep insertion order; that order
// carries through to output priority.
type Record struct {
	StructuredName string
	FormattedName  string
	Birthday       string
	Title          string

	Phones    []TaggedValue
	Emails    []TaggedValue
	Addresses []TaggedValue
	Orgs      []TaggedValue
	Notes     []TaggedValue

	extensions map[string]string
	extOrder   []string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{}
}

// DisplayName returns the formatted name, falling back to the first component
// of the structured name.
func (r *Record) DisplayName() string {
	if r.FormattedName != "" {
		return r.FormattedName
	}
	if r.StructuredName != "" {
		return strings.TrimSpace(strings.SplitN(r.StructuredName, ";", 2)[0])
	}
	return ""
}

// SetExtension stores an unrecognized field as a scalar, overwriting any
// prior value for the key. First-seen key order is preserved for iteration.
func (r *Record) SetExtension(key, value string) {
	if r.extensions == nil {
		r.extensions = make(map[string]string)
	}
	if _, ok := r.extensions[key]; !ok {
		r.extOrder = append(r.extOrder, key)
	}
	r.extensions[key] = value
}

// Extension returns the stored value for an unrecognized field key.
func (r *Record) Extension(key string) (string, bool) {
	v, ok := r.extensions[key]
	return v, ok
}

// ExtensionKeys returns extension keys in first-seen order.
func (r *Record) ExtensionKeys() []string {
	return r.extOrder
}

// Clone returns a deep copy. Merging mutates the receiver, so callers that
// need the original intact clone first.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Phones = append([]TaggedValue(nil), r.Phones...)
	cp.Emails = append([]TaggedValue(nil), r.Emails...)
	cp.Addresses = append([]TaggedValue(nil), r.Addresses...)
	cp.Orgs = append([]TaggedValue(nil), r.Orgs...)
	cp.Notes = append([]TaggedValue(nil), r.Notes...)
	if r.extensions != nil {
		cp.extensions = make(map[string]string, len(r.extensions))
		for k, v := range r.extensions {
			cp.extensions[k] = v
		}
		cp.extOrder = append([]string(nil), r.extOrder...)
	}
	for i := range cp.Phones {
		cp.Phones[i].Params = append([]Param(nil), r.Phones[i].Params...)
	}
	for i := range cp.Emails {
		cp.Emails[i].Params = append([]Param(nil), r.Emails[i].Params...)
	}
	for i := range cp.Addresses {
		cp.Addresses[i].Params = append([]Param(nil), r.Addresses[i].Params...)
	}
	for i := range cp.Orgs {
		cp.Orgs[i].Params = append([]Param(nil), r.Orgs[i].Params...)
	}
	for i := range cp.Notes {
		cp.Notes[i].Params = append([]Param(nil), r.Notes[i].Params...)
	}
	return &cp
}

// HasRealBirthday reports whether the record carries a birthday with a known
// year (not empty, not the 1900-01-01 placeholder).
func (r *Record) HasRealBirthday() bool {
	return r.Birthday != "" && r.Birthday != NoBirthday
}

// CompletenessScore ranks how much structured information the record holds.
// Used to pick the seed when folding duplicate groups: name and structured
// name count one each, organization one, a real birthday one, up to three
// phones, up to three emails, any address one, any note one.
func (r *Record) CompletenessScore() int {
	score := 0
	if r.FormattedName != "" {
		score++
	}
	if r.StructuredName != "" {
		score++
	}
	if len(r.Orgs) > 0 {
		score++
	}
	if r.HasRealBirthday() {
		score++
	}
	score += min(countNonEmpty(r.Phones), 3)
	score += min(countNonEmpty(r.Emails), 3)
	if len(r.Addresses) > 0 {
		score++
	}
	if len(r.Notes) > 0 {
		score++
	}
	return score
}

func countNonEmpty(values []TaggedValue) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v.Payload) != "" {
			n++
		}
	}
	return n
}

// IdentityKey normalizes a display name for duplicate detection: tokens split
// on whitespace and commas, lowercased, sorted, joined with single spaces.
// "Doe, John" and "John Doe" produce the same key.
func IdentityKey(name string) string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Key returns the identity key for this record's display name.
func (r *Record) Key() string {
	return IdentityKey(r.DisplayName())
}
