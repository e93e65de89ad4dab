package vcard

import (
	"strings"
	"testing"
)

func collectLogical(t *testing.T, input string) []string {
	t.Helper()
	u := NewUnfolder(strings.NewReader(input))
	var lines []string
	for u.Next() {
		lines = append(lines, u.Line())
	}
	if err := u.Err(); err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	return lines
}

func TestUnfolderJoinsContinuations(t *testing.T) {
	input := "NOTE:first part\n and the rest\nTEL:+49151\n"
	lines := collectLogical(t, input)
	if len(lines) != 2 {
		t.Fatalf("expected 2 logical lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "NOTE:first partand the rest" {
		t.Fatalf("expected continuation joined without separator, got %q", lines[0])
	}
	if lines[1] != "TEL:+49151" {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestUnfolderJoinsMultipleContinuations(t *testing.T) {
	input := "ADR:;;Long Street\n\t42;Town\n ;;12345\n"
	lines := collectLogical(t, input)
	if len(lines) != 1 {
		t.Fatalf("expected 1 logical line, got %d: %v", len(lines), lines)
	}
	if lines[0] != "ADR:;;Long Street42;Town;;12345" {
		t.Fatalf("unexpected joined line %q", lines[0])
	}
}

func TestUnfolderFirstLineIsNeverContinuation(t *testing.T) {
	lines := collectLogical(t, " leading whitespace line\nFN:John\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 logical lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != " leading whitespace line" {
		t.Fatalf("expected first line kept verbatim, got %q", lines[0])
	}
}

func TestUnfolderStripsCarriageReturns(t *testing.T) {
	lines := collectLogical(t, "FN:John Doe\r\nNOTE:a\r\n b\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 logical lines, got %d: %v", len(lines), lines)
	}
	if strings.ContainsRune(lines[0], '\r') || strings.ContainsRune(lines[1], '\r') {
		t.Fatalf("expected carriage returns stripped, got %q", lines)
	}
	if lines[1] != "NOTE:ab" {
		t.Fatalf("unexpected joined line %q", lines[1])
	}
}

func TestUnfolderEmptyInput(t *testing.T) {
	u := NewUnfolder(strings.NewReader(""))
	if u.Next() {
		t.Fatal("expected no lines from empty input")
	}
	if err := u.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnfolderKeepsBlankLines(t *testing.T) {
	lines := collectLogical(t, "FN:John\n\nTEL:+49151\n")
	if len(lines) != 3 {
		t.Fatalf("expected blank line preserved, got %d lines: %v", len(lines), lines)
	}
	if lines[1] != "" {
		t.Fatalf("expected empty middle line, got %q", lines[1])
	}
}

func TestUnfoldLinesMatchesStreaming(t *testing.T) {
	physical := []string{"NOTE:first\r", " second", "\tthird", "FN:John"}
	got := UnfoldLines(physical)
	want := collectLogical(t, strings.Join(physical, "\n")+"\n")
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("line %d mismatch: %q vs %q", i, got[i], want[i])
		}
	}
}
