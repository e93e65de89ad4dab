package ingest

import (
	"log/slog"
	"regexp"
	"strings"

	"vcfmerge/internal/config"
	"vcfmerge/internal/logging"
	"vcfmerge/internal/vcard"
)

// emailPattern is the shared RFC-shaped extraction pattern for direct EMAIL
// fields and for addresses buried in note lines.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// phoneCandidate finds phone-shaped digit runs inside free text.
var phoneCandidate = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)

// emailNoteLabels are matched as plain substrings, exactly as desktop
// contact exporters spell them.
var emailNoteLabels = []string{
	"E-mail Address:",
	"E-mail 2 Address:",
	"E-mail Display Name:",
}

// phoneNoteLabels map note labels to the TYPE parameters inferred for
// numbers found behind them. Order matters: specific labels must come before
// the generic ones they contain. Matching is case-insensitive.
var phoneNoteLabels = []struct {
	label string
	types []string
}{
	{"Business Phone:", []string{"WORK", "VOICE"}},
	{"Home Phone:", []string{"HOME", "VOICE"}},
	{"Mobile Phone:", []string{"CELL", "VOICE"}},
	{"Other Phone:", []string{"VOICE"}},
	{"Telefon geschäftlich:", []string{"WORK", "VOICE"}},
	{"Telefon privat:", []string{"HOME", "VOICE"}},
	{"Mobiltelefon:", []string{"CELL", "VOICE"}},
	{"Weiteres Telefon:", []string{"VOICE"}},
	{"Phone:", nil},
	{"Telefon:", nil},
}

// phoneKeywords gate the label-less scan: a note line with no recognized
// label is only searched for numbers when it mentions phones at all, so
// unrelated numeric text (order numbers, dates in prose) stays untouched.
var phoneKeywords = []string{"phone", "tel", "mobil", "fax"}

// addressComponentLabels in note order; Country/Region before Country so the
// longer spelling wins.
var addressComponentLabels = []string{"Street:", "City:", "State:", "Postal Code:", "Country/Region:", "Country:"}

// Miner promotes contact data out of free-text note lines into structured
// fields. Each pass is idempotent: a line it consumed is gone, and re-running
// over the remainder extracts nothing new.
type Miner struct {
	rules phoneRules
}

// NewMiner returns a miner using the configured phone acceptance rules.
func NewMiner(cfg *config.Config) *Miner {
	return &Miner{rules: phoneRulesFromConfig(cfg)}
}

// MineEmails scans note lines carrying a known email label, appends newly
// found addresses to the email list, and drops each consumed line. A line
// whose label is recognized but yields no address is kept and warned about
// rather than silently discarded.
func (m *Miner) MineEmails(rec *vcard.Record, logger *slog.Logger) {
	if len(rec.Notes) == 0 {
		return
	}
	var kept []vcard.TaggedValue
	extracted := 0
	for _, note := range rec.Notes {
		if !containsAny(note.Payload, emailNoteLabels) {
			kept = append(kept, note)
			continue
		}
		email := emailPattern.FindString(note.Payload)
		if email == "" {
			logging.WarnWithContext(logger, "email label without extractable address", "note_email_extraction_failed",
				logging.String("note", note.Payload),
				logging.String(logging.FieldErrorHint, "check the note line for a malformed address"),
				logging.String(logging.FieldImpact, "line kept in notes, no email added"))
			kept = append(kept, note)
			continue
		}
		if hasEmailPayload(rec.Emails, email) {
			logger.Debug("mined email already present", "email", email)
		} else {
			rec.Emails = append(rec.Emails, vcard.NewTagged(vcard.FieldEmail, email))
			extracted++
			logger.Debug("email extracted from note", "email", email)
		}
		// Consumed either way; the data now lives in the email list.
	}
	rec.Notes = kept
	if extracted > 0 {
		logger.Info("emails extracted from notes", logging.Int("count", extracted))
	}
}

// MinePhones scans note lines for phone numbers. Behind a recognized label
// only the trailing text is searched and the label's TYPE parameters are
// attached; label-less lines are searched whole when they mention phones.
// A line is dropped only when at least one number was taken from it.
func (m *Miner) MinePhones(rec *vcard.Record, logger *slog.Logger) {
	if len(rec.Notes) == 0 {
		return
	}
	var kept []vcard.TaggedValue
	extracted := 0
	for _, note := range rec.Notes {
		scan, types, labeled := phoneLabelSplit(note.Payload)
		if !labeled && !containsFold(note.Payload, phoneKeywords) {
			kept = append(kept, note)
			continue
		}
		added := false
		for _, candidate := range phoneCandidate.FindAllString(scan, -1) {
			candidate = strings.TrimSpace(candidate)
			if !m.rules.valid(candidate, rec.Phones, logger) {
				continue
			}
			// Mined numbers never duplicate, even with the duplicate
			// check toggled off for direct fields.
			if hasPhoneDigits(rec.Phones, digitsOnly(candidate)) {
				continue
			}
			rec.Phones = append(rec.Phones, vcard.TaggedValue{
				Name:    vcard.FieldPhone,
				Params:  vcard.TypeParams(types...),
				Payload: candidate,
			})
			extracted++
			added = true
			logger.Debug("phone extracted from note", "phone", candidate)
		}
		if !added {
			kept = append(kept, note)
		}
	}
	rec.Notes = kept
	if extracted > 0 {
		logger.Info("phones extracted from notes", logging.Int("count", extracted))
	}
}

// MineAddresses runs the business and home passes over the note lines.
// Lines are left in place; cleanup removes the component labels once an
// address exists.
func (m *Miner) MineAddresses(rec *vcard.Record, logger *slog.Logger) {
	m.mineAddress(rec, "Business ", "WORK", logger)
	m.mineAddress(rec, "Home ", "HOME", logger)
}

// mineAddress collects labeled address components across all note lines and
// synthesizes one structured address when at least street and city were
// found. An address whose payload already exists is not added again.
func (m *Miner) mineAddress(rec *vcard.Record, prefix, addrType string, logger *slog.Logger) {
	if len(rec.Notes) == 0 {
		return
	}
	components := make(map[string]string, len(addressComponentLabels))
	for _, note := range rec.Notes {
		text := strings.TrimSpace(note.Payload)
		for _, label := range addressComponentLabels {
			after, ok := strings.CutPrefix(text, prefix+label)
			if !ok {
				continue
			}
			components[label] = strings.TrimSpace(after)
			break
		}
	}
	street := components["Street:"]
	city := components["City:"]
	if street == "" || city == "" {
		return
	}
	country := components["Country/Region:"]
	if country == "" {
		country = components["Country:"]
	}
	payload := strings.Join([]string{
		"", "", street, city, components["State:"], components["Postal Code:"], country,
	}, ";")
	for _, adr := range rec.Addresses {
		if strings.EqualFold(adr.Payload, payload) {
			logger.Debug("mined address already present", "type", addrType)
			return
		}
	}
	rec.Addresses = append(rec.Addresses, vcard.TaggedValue{
		Name:    vcard.FieldAddress,
		Params:  vcard.TypeParams(addrType),
		Payload: payload,
	})
	logger.Info("address assembled from notes",
		logging.String("type", addrType), logging.String("city", city))
}

// CleanupNotes drops note lines whose content has been promoted into
// structured fields, plus administrative labels that carry no contact data.
// Everything else stays, verbatim and in order.
func (m *Miner) CleanupNotes(rec *vcard.Record, logger *slog.Logger) {
	if len(rec.Notes) == 0 {
		return
	}
	var prefixes []string
	if rec.Title != "" {
		prefixes = append(prefixes, "Job Title:")
	}
	if len(rec.Phones) > 0 {
		for _, entry := range phoneNoteLabels {
			prefixes = append(prefixes, entry.label)
		}
	}
	if len(rec.Addresses) > 0 {
		for _, area := range []string{"Business ", "Home "} {
			for _, label := range addressComponentLabels {
				prefixes = append(prefixes, area+label)
			}
		}
	}
	if len(rec.Emails) > 0 {
		prefixes = append(prefixes, "E-mail Address:", "E-mail 2 Address:", "E-mail Display Name:", "E-mail Type:")
	}
	prefixes = append(prefixes, "Priority:", "Sensitivity:")

	var kept []vcard.TaggedValue
	for _, note := range rec.Notes {
		if hasAnyPrefix(note.Payload, prefixes) {
			continue
		}
		kept = append(kept, note)
	}
	if len(kept) != len(rec.Notes) {
		logger.Debug("redundant note lines removed",
			"removed", len(rec.Notes)-len(kept), "kept", len(kept))
	}
	rec.Notes = kept
}

// phoneLabelSplit finds the first recognized phone label in the line and
// returns the text after it plus the inferred TYPE tokens. Without a label
// the whole line comes back unchanged.
func phoneLabelSplit(payload string) (scan string, types []string, labeled bool) {
	lower := strings.ToLower(payload)
	for _, entry := range phoneNoteLabels {
		idx := strings.Index(lower, strings.ToLower(entry.label))
		if idx < 0 {
			continue
		}
		return payload[idx+len(entry.label):], entry.types, true
	}
	return payload, nil, false
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s string, substrings []string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func hasEmailPayload(emails []vcard.TaggedValue, email string) bool {
	for _, tv := range emails {
		if tv.Payload == email {
			return true
		}
	}
	return false
}
