package mojibake

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"vcfmerge/internal/logging"
)

// Replacement is one user-configured literal rewrite, applied verbatim in
// configured order after the built-in stages.
type Replacement struct {
	From string
	To   string
}

// guard decides whether a stage's proposed rewrite replaces the current text.
type guard int

const (
	acceptAlways guard = iota
	acceptWhenScoreDrops
	acceptUnlessScoreRises
)

func (g guard) admits(before, after string) bool {
	switch g {
	case acceptWhenScoreDrops:
		return Score(after) < Score(before)
	case acceptUnlessScoreRises:
		return Score(after) <= Score(before)
	default:
		return true
	}
}

type stage struct {
	name  string
	apply func(string) string
	guard guard
}

// Repairer runs the repair pipeline. Construct with New; the zero value
// repairs nothing.
type Repairer struct {
	stages []stage
	logger *slog.Logger
}

// New builds a repairer with the built-in stages plus the given literal
// replacements. A nil logger disables logging.
func New(replacements []Replacement, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Repairer{
		logger: logger,
		stages: []stage{
			{name: "table", apply: repairTable, guard: acceptAlways},
			{name: "targeted", apply: repairTargeted, guard: acceptAlways},
			{name: "roundtrip", apply: repairRoundTrip, guard: acceptWhenScoreDrops},
			{name: "replacements", apply: applyReplacements(replacements), guard: acceptAlways},
			{name: "normalize", apply: repairNormalize, guard: acceptUnlessScoreRises},
		},
	}
}

// Repair runs every stage in order against the current text, keeping a
// stage's output only when its guard admits it. It never fails; at worst the
// input comes back unchanged.
func (r *Repairer) Repair(text string) string {
	if text == "" || len(r.stages) == 0 {
		return text
	}
	current := text
	for _, st := range r.stages {
		candidate := st.apply(current)
		if candidate == current {
			continue
		}
		if !st.guard.admits(current, candidate) {
			r.logger.Debug("repair stage rejected",
				"stage", st.name,
				"score_before", Score(current),
				"score_after", Score(candidate))
			continue
		}
		current = candidate
	}
	return current
}

// digraphTable maps the Windows-1252 rendering of each two-byte UTF-8
// Latin-extended letter back to the letter. The invisible second characters
// (no-break space for "à", soft hyphen for "í") are escaped for readability.
var digraphTable = strings.NewReplacer(
	"Ã¤", "ä",
	"Ã¶", "ö",
	"Ã¼", "ü",
	"Ã„", "Ä",
	"Ã–", "Ö",
	"Ãœ", "Ü",
	"ÃŸ", "ß",
	"Ã©", "é",
	"Ã¨", "è",
	"Ãª", "ê",
	"Ã«", "ë",
	"Ã¡", "á",
	"Ã\u00a0", "à",
	"Ã¢", "â",
	"Ã³", "ó",
	"Ã²", "ò",
	"Ã´", "ô",
	"Ãº", "ú",
	"Ã¹", "ù",
	"Ã»", "û",
	"Ã\u00ad", "í",
	"Ã¬", "ì",
	"Ã®", "î",
	"Ã¯", "ï",
	"Ã§", "ç",
	"Ã±", "ñ",
	"Ã¥", "å",
	"Ã¦", "æ",
	"Ã¸", "ø",
)

func repairTable(text string) string {
	return digraphTable.Replace(text)
}

// repairTargeted fixes sequences the digraph table cannot express: the
// Latin-1 rendering of "ß" pairs "Ã" with the C1 control U+009F, and a
// misread UTF-8 byte-order mark surfaces as "ï»¿".
func repairTargeted(text string) string {
	text = strings.ReplaceAll(text, "Ã\u009f", "ß")
	text = strings.ReplaceAll(text, "ï»¿", "")
	return text
}

// repairRoundTrip assumes the text was UTF-8 wrongly decoded as Windows-1252
// and undoes the decode: re-encode as Windows-1252 and take the raw bytes as
// UTF-8. Only attempted while markers remain; any encoding failure or invalid
// result keeps the input. The pipeline guard additionally requires a strict
// marker-score drop before the result is kept.
func repairRoundTrip(text string) string {
	if Score(text) == 0 {
		return text
	}
	encoded, err := charmap.Windows1252.NewEncoder().String(text)
	if err != nil {
		return text
	}
	if !utf8.ValidString(encoded) {
		return text
	}
	return encoded
}

func applyReplacements(replacements []Replacement) func(string) string {
	return func(text string) string {
		for _, rep := range replacements {
			if rep.From == "" {
				continue
			}
			text = strings.ReplaceAll(text, rep.From, rep.To)
		}
		return text
	}
}

func repairNormalize(text string) string {
	return norm.NFC.String(text)
}
