package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"vcfmerge/internal/vcard"
)

// Birthday surface forms, tried in priority order. Compact eight-digit values
// are ambiguous between year-first and day-first; year-first is tried first
// and day-first only accepted when year-first fails validation.
var (
	birthdayYMD        = regexp.MustCompile(`^(\d{4})[-./](\d{1,2})[-./](\d{1,2})$`)
	birthdayDMY        = regexp.MustCompile(`^(\d{1,2})[-./](\d{1,2})[-./](\d{4})$`)
	birthdayDayMonth   = regexp.MustCompile(`^(\d{1,2})[-./](\d{1,2})$`)
	birthdayCompactYMD = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	birthdayCompactDMY = regexp.MustCompile(`^(\d{2})(\d{2})(\d{4})$`)
	birthdayISO        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeBirthday renders a birthday value as YYYY-MM-DD. Values with no
// year get the unknown-year sentinel. Unparseable values pass through
// unchanged so nothing is silently dropped; normalizing an already-normalized
// value is the identity.
func NormalizeBirthday(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}

	if m := birthdayYMD.FindStringSubmatch(value); m != nil {
		if date, ok := formatDate(m[1], m[2], m[3]); ok {
			return date
		}
	}
	if m := birthdayDMY.FindStringSubmatch(value); m != nil {
		if date, ok := formatDate(m[3], m[2], m[1]); ok {
			return date
		}
	}
	if m := birthdayDayMonth.FindStringSubmatch(value); m != nil {
		if date, ok := formatDate(vcard.UnknownYear, m[2], m[1]); ok {
			return date
		}
	}
	if m := birthdayCompactYMD.FindStringSubmatch(value); m != nil {
		if date, ok := formatDate(m[1], m[2], m[3]); ok {
			return date
		}
	}
	if m := birthdayCompactDMY.FindStringSubmatch(value); m != nil {
		if date, ok := formatDate(m[3], m[2], m[1]); ok {
			return date
		}
	}
	if birthdayISO.MatchString(value) {
		return value
	}
	return value
}

func formatDate(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1800 || y > 2200 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}
