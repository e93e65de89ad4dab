package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Card renders one card block from raw content lines. BEGIN, VERSION, and
// END framing is added; lines are joined with the line endings input files
// actually carry.
func Card(lines ...string) string {
	all := make([]string, 0, len(lines)+3)
	all = append(all, "BEGIN:VCARD", "VERSION:3.0")
	all = append(all, lines...)
	all = append(all, "END:VCARD")
	return strings.Join(all, "\r\n") + "\r\n"
}

// Cards concatenates rendered card blocks into one file body.
func Cards(blocks ...string) string {
	return strings.Join(blocks, "")
}
