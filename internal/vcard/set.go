package vcard

import "sort"

// Set holds assembled records keyed by the display name they were stored
// under. Keys are the verbatim formatted names, not identity keys; duplicate
// detection across spelling variants is the deduplicator's job.
type Set struct {
	records map[string]*Record
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{records: make(map[string]*Record)}
}

// Put stores a record under the given name, replacing any previous entry.
// Empty names and nil records are ignored.
func (s *Set) Put(name string, rec *Record) {
	if name == "" || rec == nil {
		return
	}
	s.records[name] = rec
}

// Get returns the record stored under name.
func (s *Set) Get(name string) (*Record, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Delete removes the entry stored under name.
func (s *Set) Delete(name string) {
	delete(s.records, name)
}

// Len returns the number of stored records.
func (s *Set) Len() int {
	return len(s.records)
}

// Names returns all keys in sorted order. Every iteration over a set goes
// through this so downstream output is reproducible run to run.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the set. Merging mutates records in place, so
// stages that need the pre-merge state for comparison clone first.
func (s *Set) Clone() *Set {
	cp := NewSet()
	for name, rec := range s.records {
		cp.records[name] = rec.Clone()
	}
	return cp
}
