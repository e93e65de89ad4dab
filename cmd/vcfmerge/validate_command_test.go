package main

import (
	"path/filepath"
	"testing"

	"vcfmerge/internal/testsupport"
)

func TestValidateCommandScansFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.vcf")
	testsupport.WriteFile(t, path, testsupport.Cards(
		testsupport.Card("N:Roe;Jane;;;", "FN:Jane Roe", "TEL:069 555000", "EMAIL:jane@roe.test"),
		testsupport.Card("FN:Klaus Weber", "TEL:12.03.1990"),
	))

	out, _, err := runCLI(t, []string{"validate", path}, "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	requireContains(t, out, "cards scanned: 2")
	requireContains(t, out, "suspicious phone payloads: 1")
	requireContains(t, out, "TEL:12.03.1990")
	requireContains(t, out, "flagged identities: 1")
	requireContains(t, out, "Klaus Weber")
}

func TestValidateCommandMissingFileFails(t *testing.T) {
	_, _, err := runCLI(t, []string{"validate", filepath.Join(t.TempDir(), "absent.vcf")}, "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateCommandRequiresArgument(t *testing.T) {
	_, _, err := runCLI(t, []string{"validate"}, "")
	if err == nil {
		t.Fatal("expected error for missing argument")
	}
}
