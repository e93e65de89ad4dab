package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vcfmerge/internal/config"
	"vcfmerge/internal/ingest"
	"vcfmerge/internal/logging"
	"vcfmerge/internal/services"
	"vcfmerge/internal/vcard"
)

func newTestParser(t *testing.T) (*ingest.Parser, *config.Config) {
	t.Helper()
	cfg := config.Default()
	return ingest.NewParser(&cfg, nil, logging.NewNop()), &cfg
}

func parseText(t *testing.T, parser *ingest.Parser, text string) *vcard.Set {
	t.Helper()
	set, err := parser.Parse(context.Background(), strings.NewReader(text))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return set
}

func mustGet(t *testing.T, set *vcard.Set, name string) *vcard.Record {
	t.Helper()
	rec, ok := set.Get(name)
	if !ok {
		t.Fatalf("record %q missing, stored names: %v", name, set.Names())
	}
	return rec
}

func TestParseAssemblesCompleteCard(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:Roe;Jane;;;",
		"FN:Jane Roe",
		"ORG:ACME GmbH;Research",
		"TITLE:Engineer",
		"BDAY:28.09.1976",
		"TEL;TYPE=CELL:+49 176 4224 9602",
		"TEL:030123456",
		"item1.EMAIL;type=INTERNET:jane@roe.test",
		"item2.ADR;type=WORK:;;Hauptstraße 5;Frankfurt;;60311;Deutschland",
		"NOTE:E-mail 2 Address: jane.roe@work.example",
		"X-SOCIALPROFILE:@janeroe",
		"END:VCARD",
	}, "\n"))

	if set.Len() != 1 {
		t.Fatalf("contact count = %d, want 1", set.Len())
	}
	rec := mustGet(t, set, "Jane Roe")

	if rec.StructuredName != "Roe;Jane;;;" {
		t.Errorf("StructuredName = %q", rec.StructuredName)
	}
	if rec.Title != "Engineer" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Birthday != "1976-09-28" {
		t.Errorf("Birthday = %q, want 1976-09-28", rec.Birthday)
	}
	if len(rec.Orgs) != 1 || rec.Orgs[0].Payload != "ACME GmbH;Research" {
		t.Errorf("Orgs = %v", rec.Orgs)
	}
	if len(rec.Phones) != 2 {
		t.Fatalf("phone count = %d, want 2: %v", len(rec.Phones), rec.Phones)
	}
	if got := rec.Phones[0].String(); got != "TEL;TYPE=CELL:+49 176 4224 9602" {
		t.Errorf("first phone = %q", got)
	}
	if got := rec.Phones[1].String(); got != "TEL:030123456" {
		t.Errorf("second phone = %q", got)
	}
	if len(rec.Emails) != 2 {
		t.Fatalf("email count = %d, want direct plus mined: %v", len(rec.Emails), rec.Emails)
	}
	if got := rec.Emails[0].String(); got != "EMAIL;type=INTERNET:jane@roe.test" {
		t.Errorf("direct email = %q", got)
	}
	if rec.Emails[1].Payload != "jane.roe@work.example" {
		t.Errorf("mined email = %q", rec.Emails[1].Payload)
	}
	if len(rec.Addresses) != 1 {
		t.Fatalf("address count = %d: %v", len(rec.Addresses), rec.Addresses)
	}
	if got := rec.Addresses[0].String(); got != "ADR;type=WORK:;;Hauptstraße 5;Frankfurt;;60311;Deutschland" {
		t.Errorf("address = %q", got)
	}
	if len(rec.Notes) != 0 {
		t.Errorf("notes = %v, want consumed by mining", rec.Notes)
	}
	if version, ok := rec.Extension("VERSION"); !ok || version != "3.0" {
		t.Errorf("VERSION extension = %q, %v", version, ok)
	}
	if profile, ok := rec.Extension("X-SOCIALPROFILE"); !ok || profile != "@janeroe" {
		t.Errorf("X-SOCIALPROFILE extension = %q, %v", profile, ok)
	}
}

func TestParseFirstBirthdayWins(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"BDAY:1976-09-28",
		"BDAY:2000-01-01",
		"END:VCARD",
	}, "\n"))

	if rec := mustGet(t, set, "Jane Roe"); rec.Birthday != "1976-09-28" {
		t.Fatalf("Birthday = %q, want the first one", rec.Birthday)
	}
}

func TestParseLastTitleWins(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"TITLE:Junior Engineer",
		"TITLE:Principal Engineer",
		"END:VCARD",
	}, "\n"))

	if rec := mustGet(t, set, "Jane Roe"); rec.Title != "Principal Engineer" {
		t.Fatalf("Title = %q, want the last one", rec.Title)
	}
}

func TestParseRejectsDuplicatePhoneDigits(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"TEL:+4917642249602",
		"TEL;TYPE=CELL:+49 176 4224 9602",
		"END:VCARD",
	}, "\n"))

	rec := mustGet(t, set, "Jane Roe")
	if len(rec.Phones) != 1 {
		t.Fatalf("phone count = %d, want duplicate digits collapsed: %v", len(rec.Phones), rec.Phones)
	}
}

func TestParseUnfoldsContinuationLines(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"NOTE:Müller Str",
		" aße 12, Hinterhaus",
		"END:VCARD",
	}, "\n"))

	rec := mustGet(t, set, "Jane Roe")
	if len(rec.Notes) != 1 {
		t.Fatalf("note count = %d: %v", len(rec.Notes), rec.Notes)
	}
	if got := rec.Notes[0].Payload; got != "Müller Straße 12, Hinterhaus" {
		t.Fatalf("note payload = %q", got)
	}
}

func TestParseDecodesQuotedPrintable(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN;ENCODING=QUOTED-PRINTABLE;CHARSET=UTF-8:J=C3=BCrgen M=C3=BCller",
		"END:VCARD",
	}, "\n"))

	if _, ok := set.Get("Jürgen Müller"); !ok {
		t.Fatalf("decoded name missing, stored names: %v", set.Names())
	}
}

func TestParseRepairsMojibakeValues(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:JÃ¼rgen MÃ¼ller",
		"END:VCARD",
	}, "\n"))

	if _, ok := set.Get("Jürgen Müller"); !ok {
		t.Fatalf("repaired name missing, stored names: %v", set.Names())
	}
}

func TestParseDiscardsCardWithoutName(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"N:Roe;Jane;;;",
		"TEL:030123456",
		"END:VCARD",
	}, "\n"))

	if set.Len() != 0 {
		t.Fatalf("contact count = %d, want card without FN discarded", set.Len())
	}
}

func TestParseToleratesJunkAndStrayMarkers(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"junk before any card",
		"END:VCARD",
		"BEGIN:VCARD",
		"line without separator",
		"FN:Jane Roe",
		"END:VCARD",
		"trailing junk",
	}, "\n"))

	if set.Len() != 1 {
		t.Fatalf("contact count = %d, want 1", set.Len())
	}
	mustGet(t, set, "Jane Roe")
}

func TestParseBeginResetsOpenCard(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Lost Card",
		"TEL:0301234567",
		"BEGIN:VCARD",
		"FN:Kept Card",
		"END:VCARD",
	}, "\n"))

	if set.Len() != 1 {
		t.Fatalf("contact count = %d, want only the second card", set.Len())
	}
	if _, ok := set.Get("Lost Card"); ok {
		t.Fatal("abandoned card must not be stored")
	}
	mustGet(t, set, "Kept Card")
}

func TestParseSameNameSecondCardWins(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"TITLE:First",
		"END:VCARD",
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"TITLE:Second",
		"END:VCARD",
	}, "\n"))

	if set.Len() != 1 {
		t.Fatalf("contact count = %d, want 1", set.Len())
	}
	if rec := mustGet(t, set, "Jane Roe"); rec.Title != "Second" {
		t.Fatalf("Title = %q, want the later card to win", rec.Title)
	}
}

func TestParseEmailFallsBackToRawValue(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"EMAIL:John Doe <john.doe@example.com>, bad-entry",
		"EMAIL:not-an-address;",
		"END:VCARD",
	}, "\n"))

	rec := mustGet(t, set, "Jane Roe")
	if len(rec.Emails) != 2 {
		t.Fatalf("email count = %d: %v", len(rec.Emails), rec.Emails)
	}
	if rec.Emails[0].Payload != "john.doe@example.com" {
		t.Errorf("extracted email = %q", rec.Emails[0].Payload)
	}
	if rec.Emails[1].Payload != "not-an-address" {
		t.Errorf("raw fallback = %q, want trailing semicolon trimmed", rec.Emails[1].Payload)
	}
}

func TestParsePadsShortAddresses(t *testing.T) {
	parser, _ := newTestParser(t)
	set := parseText(t, parser, strings.Join([]string{
		"BEGIN:VCARD",
		"FN:Jane Roe",
		"ADR;TYPE=HOME:;;Nebenweg 2;Offenbach",
		"END:VCARD",
	}, "\n"))

	rec := mustGet(t, set, "Jane Roe")
	if len(rec.Addresses) != 1 {
		t.Fatalf("address count = %d", len(rec.Addresses))
	}
	if got := rec.Addresses[0].Payload; got != ";;Nebenweg 2;Offenbach;;;" {
		t.Fatalf("payload = %q, want seven components", got)
	}
}

func TestParseFileReadsUTF8(t *testing.T) {
	parser, _ := newTestParser(t)
	path := filepath.Join(t.TempDir(), "contacts.vcf")
	content := "BEGIN:VCARD\nFN:Jürgen Müller\nEND:VCARD\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if _, ok := set.Get("Jürgen Müller"); !ok {
		t.Fatalf("stored names: %v", set.Names())
	}
}

func TestParseFileStripsByteOrderMark(t *testing.T) {
	parser, _ := newTestParser(t)
	path := filepath.Join(t.TempDir(), "contacts.vcf")
	content := "\xef\xbb\xbfBEGIN:VCARD\nFN:Jane Roe\nEND:VCARD\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if _, ok := set.Get("Jane Roe"); !ok {
		t.Fatalf("first card lost behind byte order mark, names: %v", set.Names())
	}
}

func TestParseFileFallsBackToWindows1252(t *testing.T) {
	parser, _ := newTestParser(t)
	path := filepath.Join(t.TempDir(), "contacts.vcf")
	// 0xFC is "ü" in Windows-1252 and invalid UTF-8.
	content := []byte("BEGIN:VCARD\nFN:J\xfcrgen M\xfcller\nEND:VCARD\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if _, ok := set.Get("Jürgen Müller"); !ok {
		t.Fatalf("fallback decode failed, names: %v", set.Names())
	}
}

func TestParseFileFallbackDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Encoding.FallbackEnabled = false
	parser := ingest.NewParser(&cfg, nil, logging.NewNop())

	path := filepath.Join(t.TempDir(), "contacts.vcf")
	if err := os.WriteFile(path, []byte("FN:J\xfcrgen\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := parser.ParseFile(context.Background(), path)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestParseFileMissing(t *testing.T) {
	parser, _ := newTestParser(t)
	_, err := parser.ParseFile(context.Background(), filepath.Join(t.TempDir(), "absent.vcf"))
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("err = %v, want io failure", err)
	}
}
