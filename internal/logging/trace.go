package logging

import (
	"log/slog"
	"strings"
)

// TraceSet marks identity keys whose processing should be logged verbosely
// regardless of the configured level. Callers normalize names into keys
// before lookup; the set itself only compares strings.
type TraceSet map[string]struct{}

// NewTraceSet builds a set from already-normalized keys, dropping empties.
func NewTraceSet(keys ...string) TraceSet {
	set := make(TraceSet, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

// Traced reports whether the key is in the set.
func (s TraceSet) Traced(key string) bool {
	_, ok := s[key]
	return ok
}

// LoggerFor returns base lowered to debug when the key is traced, otherwise
// base unchanged. The debug records only reach output when the underlying
// handler was built at debug level; the run command does that whenever any
// trace identities are configured.
func (s TraceSet) LoggerFor(base *slog.Logger, key string) *slog.Logger {
	if base == nil {
		base = NewNop()
	}
	if !s.Traced(key) {
		return base
	}
	return WithLevelOverride(base, slog.LevelDebug)
}
