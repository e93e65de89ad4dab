package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode"

	"vcfmerge/internal/logging"
	"vcfmerge/internal/mojibake"
	"vcfmerge/internal/services"
	"vcfmerge/internal/vcard"
)

// exampleLimit caps how many sample lines or identities each finding keeps
// in the rendered report. The counts always cover everything.
const exampleLimit = 5

var (
	numericDate = regexp.MustCompile(`^\d{1,2}[./-]\d{1,2}[./-]\d{2,4}$`)
	isoDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidationPath is where the validation report lands for a given output
// file.
func ValidationPath(outputPath string) string {
	return outputPath + ".validation.txt"
}

// Category is one class of findings: how often it occurred plus a few
// example lines.
type Category struct {
	Name     string
	Count    int
	Examples []string
}

func (c *Category) add(example string) {
	c.Count++
	if len(c.Examples) < exampleLimit {
		c.Examples = append(c.Examples, example)
	}
}

// ValidationResult is the outcome of scanning one written card file.
type ValidationResult struct {
	Path  string
	Cards int

	Mojibake         Category
	SuspiciousPhones Category
	InvalidEmails    Category
	ShortAddresses   Category

	MissingPhone   []string
	MissingEmail   []string
	MissingAddress []string

	// FlaggedIdentities lists the display name of every card that produced
	// at least one category finding, in file order.
	FlaggedIdentities []string
}

func newValidationResult(path string) *ValidationResult {
	return &ValidationResult{
		Path:             path,
		Mojibake:         Category{Name: "mojibake lines"},
		SuspiciousPhones: Category{Name: "suspicious phone payloads"},
		InvalidEmails:    Category{Name: "invalid email payloads"},
		ShortAddresses:   Category{Name: "under-populated addresses"},
	}
}

// Findings returns the total number of flagged lines and missing-field
// cards.
func (r *ValidationResult) Findings() int {
	return r.Mojibake.Count + r.SuspiciousPhones.Count + r.InvalidEmails.Count +
		r.ShortAddresses.Count + len(r.MissingPhone) + len(r.MissingEmail) +
		len(r.MissingAddress)
}

// Clean reports whether the scan found nothing to flag.
func (r *ValidationResult) Clean() bool {
	return r.Findings() == 0
}

// Render formats the result as the text report written next to the output
// file.
func (r *ValidationResult) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation report for %s\n", r.Path)
	fmt.Fprintf(&b, "cards scanned: %d\n", r.Cards)
	fmt.Fprintf(&b, "findings: %d\n", r.Findings())
	for _, cat := range []*Category{&r.Mojibake, &r.SuspiciousPhones, &r.InvalidEmails, &r.ShortAddresses} {
		fmt.Fprintf(&b, "\n%s: %d\n", cat.Name, cat.Count)
		for _, example := range cat.Examples {
			fmt.Fprintf(&b, "  %s\n", example)
		}
		if cat.Count > len(cat.Examples) {
			fmt.Fprintf(&b, "  ... and %d more\n", cat.Count-len(cat.Examples))
		}
	}
	writeIdentityList(&b, "cards without phone", r.MissingPhone)
	writeIdentityList(&b, "cards without email", r.MissingEmail)
	writeIdentityList(&b, "cards without address", r.MissingAddress)
	writeIdentityList(&b, "flagged identities", r.FlaggedIdentities)
	return b.String()
}

// WriteFile writes the rendered report to the given path.
func (r *ValidationResult) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(r.Render()), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "report", "write validation report", path, err)
	}
	return nil
}

func writeIdentityList(b *strings.Builder, label string, identities []string) {
	fmt.Fprintf(b, "\n%s: %d\n", label, len(identities))
	for i, identity := range identities {
		if i == exampleLimit {
			fmt.Fprintf(b, "  ... and %d more\n", len(identities)-exampleLimit)
			return
		}
		fmt.Fprintf(b, "  %s\n", identity)
	}
}

// Validator line-scans written card files. It deliberately bypasses the
// structured parser: the point is to judge the exact bytes an importer will
// see.
type Validator struct {
	logger *slog.Logger
}

// NewValidator builds a validator.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logging.NewComponentLogger(logger, "validate")}
}

// cardScan tracks per-card state between begin and end markers.
type cardScan struct {
	index     int
	identity  string
	phones    int
	emails    int
	addresses int
	flagged   bool
}

// ValidateFile scans one written file and collects findings. Folded lines are
// joined before any check runs. Scan problems never abort the scan; only I/O
// failures surface as errors.
func (v *Validator) ValidateFile(ctx context.Context, path string) (*ValidationResult, error) {
	logger := logging.WithContext(ctx, v.logger)
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "report", "open output file", path, err)
	}
	defer f.Close()

	result := newValidationResult(path)
	var current *cardScan
	index := 0

	unfolder := vcard.NewUnfolder(f)
	for unfolder.Next() {
		line := unfolder.Line()
		if line == "" {
			continue
		}
		flagged := false
		if mojibake.Damaged(line) {
			result.Mojibake.add(line)
			flagged = true
		}
		head, payload, ok := strings.Cut(line, ":")
		if ok {
			name, _, _ := strings.Cut(head, ";")
			payload = strings.TrimSpace(payload)
			switch strings.ToUpper(strings.TrimSpace(name)) {
			case "BEGIN":
				index++
				current = &cardScan{index: index}
			case "END":
				if current != nil {
					v.finishCard(result, current)
					current = nil
				}
			case vcard.FieldFormattedName:
				if current != nil && current.identity == "" {
					current.identity = payload
				}
			case vcard.FieldPhone:
				if current != nil {
					current.phones++
				}
				if suspiciousPhone(payload) {
					result.SuspiciousPhones.add(line)
					flagged = true
				}
			case vcard.FieldEmail:
				if current != nil {
					current.emails++
				}
				if payload == "" || !strings.Contains(payload, "@") {
					result.InvalidEmails.add(line)
					flagged = true
				}
			case vcard.FieldAddress:
				if current != nil {
					current.addresses++
				}
				if strings.Count(payload, ";") < 6 {
					result.ShortAddresses.add(line)
					flagged = true
				}
			}
		}
		if flagged && current != nil {
			current.flagged = true
		}
	}
	if err := unfolder.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, "report", "scan output file", path, err)
	}

	if n := result.Findings(); n > 0 {
		logger.Warn("validation scan complete",
			logging.Alert("card_quality"),
			logging.String("file", path),
			logging.Int("cards", result.Cards),
			logging.Int("findings", n))
	} else {
		logger.Info("validation scan complete",
			logging.String("file", path),
			logging.Int("cards", result.Cards),
			logging.Int("findings", 0))
	}
	return result, nil
}

func (v *Validator) finishCard(result *ValidationResult, c *cardScan) {
	identity := c.identity
	if identity == "" {
		identity = fmt.Sprintf("card %d", c.index)
	}
	result.Cards++
	if c.phones == 0 {
		result.MissingPhone = append(result.MissingPhone, identity)
	}
	if c.emails == 0 {
		result.MissingEmail = append(result.MissingEmail, identity)
	}
	if c.addresses == 0 {
		result.MissingAddress = append(result.MissingAddress, identity)
	}
	if c.flagged {
		result.FlaggedIdentities = append(result.FlaggedIdentities, identity)
	}
}

// suspiciousPhone reports payloads that cannot be phone numbers: date shapes
// and anything containing letters.
func suspiciousPhone(payload string) bool {
	if payload == "" {
		return false
	}
	if numericDate.MatchString(payload) || isoDate.MatchString(payload) {
		return true
	}
	for _, r := range payload {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
