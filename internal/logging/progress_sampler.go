package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when phases or count buckets change.
type ProgressSampler struct {
	bucketSize int64
	lastPhase  string
	lastBucket int64
}

// NewProgressSampler constructs a sampler that emits when a monotonically
// growing count crosses bucket boundaries (default 2000) or when the phase
// changes.
func NewProgressSampler(bucketSize int64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 2000
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. Count can be
// negative to indicate "unknown"; phase is trimmed before comparison.
func (s *ProgressSampler) ShouldLog(count int64, phase string) bool {
	if s == nil {
		return true
	}
	phase = strings.TrimSpace(phase)
	emit := false
	if phase != "" && phase != s.lastPhase {
		s.lastPhase = phase
		emit = true
		s.lastBucket = -1
	}
	if count >= 0 {
		bucket := count / s.bucketSize
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new file starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastPhase = ""
	s.lastBucket = -1
}
