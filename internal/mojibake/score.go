package mojibake

import "strings"

// Score counts mojibake marker sequences in text: the stray capitals "Ã" and
// "Â" left behind by a Latin-1 read of UTF-8 lead bytes, the Unicode
// replacement character, and the "â€" prefix common to corrupted smart
// punctuation. Zero means no visible damage.
func Score(text string) int {
	return strings.Count(text, "Ã") +
		strings.Count(text, "Â") +
		strings.Count(text, "�") +
		strings.Count(text, "â€")
}

// Damaged reports whether text shows any mojibake markers.
func Damaged(text string) bool {
	return Score(text) > 0
}
