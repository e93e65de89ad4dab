package ingest

import (
	"testing"

	"vcfmerge/internal/logging"
	"vcfmerge/internal/vcard"
)

func TestPhoneRulesValid(t *testing.T) {
	rules := phoneRules{minDigits: 7, checkDuplicates: true}
	existing := []vcard.TaggedValue{vcard.NewTagged(vcard.FieldPhone, "+49 176 4224 9602")}
	logger := logging.NewNop()

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{name: "international accepted", candidate: "+49 30 901820", want: true},
		{name: "too short", candidate: "123456", want: false},
		{name: "all zeros", candidate: "0000000", want: false},
		{name: "empty", candidate: "", want: false},
		{name: "whitespace only", candidate: "   ", want: false},
		{name: "dotted date rejected", candidate: "01.01.1990", want: false},
		{name: "slashed date rejected", candidate: "24/12/1985", want: false},
		{name: "duplicate digits rejected", candidate: "49176/4224-9602", want: false},
		{name: "formatted duplicate rejected", candidate: "+49 (176) 4224-9602", want: false},
		{name: "distinct number accepted", candidate: "030 2847 1111", want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.valid(tc.candidate, existing, logger); got != tc.want {
				t.Fatalf("valid(%q) = %v, want %v", tc.candidate, got, tc.want)
			}
		})
	}
}

func TestPhoneRulesDuplicateCheckToggle(t *testing.T) {
	rules := phoneRules{minDigits: 7, checkDuplicates: false}
	existing := []vcard.TaggedValue{vcard.NewTagged(vcard.FieldPhone, "+49 176 4224 9602")}

	if !rules.valid("+49-176-4224-9602", existing, logging.NewNop()) {
		t.Fatal("duplicate digits must pass with the check disabled")
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := digitsOnly("+49 (176) 4224-9602"); got != "4917642249602" {
		t.Fatalf("digitsOnly = %q, want 4917642249602", got)
	}
}
