package vcard

import "strings"

// Param is one field parameter. Bare tokens (no "=") carry an empty Value and
// serialize back without one.
type Param struct {
	Key   string
	Value string
}

// TaggedValue is one entry of a repeatable field: the canonical field name,
// its ordered parameter list preserved verbatim from input, and the payload
// after the ":" separator. Unknown parameters pass through untouched.
type TaggedValue struct {
	Name    string
	Params  []Param
	Payload string
}

// NewTagged builds a tagged value without parameters.
func NewTagged(name, payload string) TaggedValue {
	return TaggedValue{Name: name, Payload: payload}
}

// ParseTagged splits a serialized "NAME[;PARAM=VALUE...]:payload" line.
// Returns false when the line has no ":" separator.
func ParseTagged(line string) (TaggedValue, bool) {
	head, payload, ok := strings.Cut(line, ":")
	if !ok {
		return TaggedValue{}, false
	}
	name, paramSegment, _ := strings.Cut(head, ";")
	return TaggedValue{
		Name:    name,
		Params:  ParseParams(paramSegment),
		Payload: payload,
	}, true
}

// ParseParams parses a ";"-delimited parameter segment (without the leading
// field name). Empty segments yield nil.
func ParseParams(segment string) []Param {
	if segment == "" {
		return nil
	}
	parts := strings.Split(segment, ";")
	params := make([]Param, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			params = append(params, Param{Key: key})
			continue
		}
		params = append(params, Param{Key: key, Value: value})
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

// String re-serializes the tagged value. With untouched params the result
// matches the input line byte for byte.
func (t TaggedValue) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteString(t.ParamSegment())
	b.WriteByte(':')
	b.WriteString(t.Payload)
	return b.String()
}

// ParamSegment renders the parameter list including its leading ";", or ""
// when there are no parameters.
func (t TaggedValue) ParamSegment() string {
	if len(t.Params) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range t.Params {
		b.WriteByte(';')
		b.WriteString(p.Key)
		if p.Value != "" {
			b.WriteByte('=')
			b.WriteString(p.Value)
		}
	}
	return b.String()
}

// HasParam reports whether any parameter key or value equals the given token,
// case-insensitively. Covers both "TYPE=CELL" and bare "CELL" spellings.
func (t TaggedValue) HasParam(token string) bool {
	for _, p := range t.Params {
		if strings.EqualFold(p.Key, token) || strings.EqualFold(p.Value, token) {
			return true
		}
	}
	return false
}

// WithParams returns a copy of the tagged value with the given parameters.
func (t TaggedValue) WithParams(params ...Param) TaggedValue {
	t.Params = params
	return t
}

// TypeParams builds a TYPE parameter list from bare type tokens.
func TypeParams(types ...string) []Param {
	params := make([]Param, 0, len(types))
	for _, typ := range types {
		params = append(params, Param{Key: "TYPE", Value: typ})
	}
	return params
}
