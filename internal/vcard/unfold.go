package vcard

import (
	"bufio"
	"io"
	"strings"
)

// maxLineBytes bounds a single physical line. Embedded photo data can run
// far past bufio's 64 KiB default.
const maxLineBytes = 1 << 20

// Unfolder reconstructs logical lines from a physically folded stream: a
// physical line starting with a space or tab continues the previous logical
// line, with its leading whitespace stripped and no separator inserted.
type Unfolder struct {
	scanner *bufio.Scanner
	pending string
	started bool
	line    string
	done    bool
}

// NewUnfolder wraps a raw line stream.
func NewUnfolder(r io.Reader) *Unfolder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Unfolder{scanner: scanner}
}

// Next advances to the next logical line. It returns false at end of input or
// on a read error; check Err afterwards.
func (u *Unfolder) Next() bool {
	if u.done {
		return false
	}
	for u.scanner.Scan() {
		physical := strings.TrimRight(u.scanner.Text(), "\r")
		if u.started && isContinuation(physical) {
			u.pending += strings.TrimLeft(physical, " \t")
			continue
		}
		if u.started {
			u.line = u.pending
			u.pending = physical
			return true
		}
		// The first physical line is never a continuation.
		u.pending = physical
		u.started = true
	}
	u.done = true
	if u.started {
		u.line = u.pending
		return true
	}
	return false
}

// Line returns the logical line produced by the last successful Next.
func (u *Unfolder) Line() string {
	return u.line
}

// Err returns the first error encountered while reading.
func (u *Unfolder) Err() error {
	return u.scanner.Err()
}

func isContinuation(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// UnfoldLines joins pre-split physical lines into logical lines. Convenience
// for callers that already hold the whole input.
func UnfoldLines(physical []string) []string {
	var logical []string
	for i, line := range physical {
		line = strings.TrimRight(line, "\r")
		if i > 0 && isContinuation(line) && len(logical) > 0 {
			logical[len(logical)-1] += strings.TrimLeft(line, " \t")
			continue
		}
		logical = append(logical, line)
	}
	return logical
}
