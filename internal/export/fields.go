package export

import (
	"sort"
	"strings"

	"vcfmerge/internal/mojibake"
	"vcfmerge/internal/vcard"
)

// componentLabels are the prose labels of mined note-block addresses. A
// payload still carrying one was assembled from a half-parsed block and never
// renders as a usable address, so the writer drops it.
var componentLabels = []string{"Street:", "City:", "State:", "Postal Code:", "Country/Region:", "Country:"}

// prepareAddresses drops malformed payloads, collapses spelling variants of
// the same address, and orders the survivors work first, then home, then the
// rest. Within a tier the input order is kept.
func prepareAddresses(addrs []vcard.TaggedValue, repairer *mojibake.Repairer) []vcard.TaggedValue {
	kept := make([]vcard.TaggedValue, 0, len(addrs))
	seen := make(map[string]int)
	for _, addr := range addrs {
		if addr.Payload == "" || containsComponentLabel(addr.Payload) {
			continue
		}
		key := strings.ToLower(repairer.Repair(addr.Payload))
		if at, ok := seen[key]; ok {
			// Among variants of one address the least damaged spelling wins.
			if mojibake.Score(addr.Payload) < mojibake.Score(kept[at].Payload) {
				kept[at] = addr
			}
			continue
		}
		seen[key] = len(kept)
		kept = append(kept, addr)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return addressTier(kept[i]) < addressTier(kept[j])
	})
	return kept
}

func containsComponentLabel(payload string) bool {
	for _, label := range componentLabels {
		if strings.Contains(payload, label) {
			return true
		}
	}
	return false
}

func addressTier(addr vcard.TaggedValue) int {
	params := strings.ToUpper(addr.ParamSegment())
	switch {
	case strings.Contains(params, "WORK"):
		return 0
	case strings.Contains(params, "HOME"):
		return 1
	default:
		return 2
	}
}

// preparePhones drops empty payloads, collapses numbers that reduce to the
// same digit string (first occurrence wins), and orders the survivors cell,
// work, home, fax, unlabeled. Within a tier the input order is kept.
func preparePhones(phones []vcard.TaggedValue) []vcard.TaggedValue {
	kept := make([]vcard.TaggedValue, 0, len(phones))
	seen := make(map[string]struct{})
	for _, phone := range phones {
		payload := strings.TrimSpace(phone.Payload)
		if payload == "" {
			continue
		}
		key := digitsOf(payload)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, phone)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return phoneTier(kept[i]) < phoneTier(kept[j])
	})
	return kept
}

// phoneTier ranks a phone by the text before its ":" separator; lower writes
// first. The label match is a plain substring test, so both "TYPE=CELL" and
// bare "CELL" spellings count.
func phoneTier(phone vcard.TaggedValue) int {
	head := strings.ToUpper(phone.Name + phone.ParamSegment())
	switch {
	case strings.Contains(head, "CELL"):
		return 0
	case strings.Contains(head, "WORK"), strings.Contains(head, "BUSINESS"):
		return 1
	case strings.Contains(head, "HOME"):
		return 2
	case strings.Contains(head, "FAX"):
		return 3
	default:
		return 4
	}
}

// prepareEmails trims payloads and drops exact repeats, keeping the first
// occurrence. The writer emits addresses bare, so only payloads survive.
func prepareEmails(emails []vcard.TaggedValue) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{})
	for _, email := range emails {
		addr := strings.TrimSpace(email.Payload)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// noteBody folds the remaining notes into a single field body. Backslashes
// are doubled per note before the join so the literal "\n" separators stay
// distinguishable from escaped content.
func noteBody(notes []vcard.TaggedValue) string {
	parts := make([]string, 0, len(notes))
	for _, note := range notes {
		text := strings.TrimSpace(note.Payload)
		if text == "" {
			continue
		}
		parts = append(parts, strings.ReplaceAll(text, `\`, `\\`))
	}
	return strings.Join(parts, `\n`)
}

// digitsOf strips everything but digits; the digit string is the identity
// used for phone de-duplication.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dialString keeps digits and plus signs so configured mobile prefixes match
// both "+49..." and "0..." spellings of a number.
func dialString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
