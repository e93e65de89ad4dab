package main

import (
	"testing"
)

func TestRootCommandShowsHelp(t *testing.T) {
	out, _, err := runCLI(t, nil, "")
	if err != nil {
		t.Fatalf("root help: %v", err)
	}
	for _, name := range []string{"run", "validate", "audit", "config", "version"} {
		requireContains(t, out, name)
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "vcfmerge ")
}
