package ingest

import (
	"log/slog"
	"regexp"
	"strings"

	"vcfmerge/internal/config"
	"vcfmerge/internal/vcard"
)

var (
	// phoneRun matches a payload that is nothing but a phone number.
	phoneRun = regexp.MustCompile(`^[+\d\s().-]+$`)
	// phoneFallback finds a long digit/punctuation run inside arbitrary text.
	phoneFallback = regexp.MustCompile(`[+\d\s().-]{10,}`)
	// bareDate catches numeric dates that would otherwise pass the digit
	// count check and be misclassified as phone numbers.
	bareDate  = regexp.MustCompile(`^\d{1,2}[./-]\d{1,2}[./-]\d{2,4}$`)
	nonDigits = regexp.MustCompile(`[^\d]`)
)

// phoneRules holds the configured acceptance thresholds for candidate phone
// numbers. The same rules apply to direct TEL fields and to numbers mined
// out of note lines.
type phoneRules struct {
	minDigits       int
	checkDuplicates bool
}

func phoneRulesFromConfig(cfg *config.Config) phoneRules {
	return phoneRules{
		minDigits:       cfg.Phone.MinDigits,
		checkDuplicates: cfg.Phone.CheckDuplicates,
	}
}

// valid reports whether candidate should be accepted next to the already
// accepted phones. Rejections are logged at debug level only; a rejected
// candidate is an expected data condition, not an error.
func (r phoneRules) valid(candidate string, existing []vcard.TaggedValue, logger *slog.Logger) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	digits := digitsOnly(candidate)
	if len(digits) < r.minDigits {
		logger.Debug("phone rejected, too few digits",
			"phone", candidate, "digits", len(digits), "min_digits", r.minDigits)
		return false
	}
	if strings.Trim(digits, "0") == "" {
		logger.Debug("phone rejected, only zeros", "phone", candidate)
		return false
	}
	if bareDate.MatchString(candidate) {
		logger.Debug("phone rejected, looks like a date", "phone", candidate)
		return false
	}
	if r.checkDuplicates && hasPhoneDigits(existing, digits) {
		logger.Debug("phone rejected, duplicate digits", "phone", candidate)
		return false
	}
	return true
}

// digitsOnly strips everything but digits; the digit string is the identity
// used for phone de-duplication.
func digitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// hasPhoneDigits reports whether any existing phone payload reduces to the
// same digit string.
func hasPhoneDigits(phones []vcard.TaggedValue, digits string) bool {
	for _, tv := range phones {
		if digitsOnly(tv.Payload) == digits {
			return true
		}
	}
	return false
}
