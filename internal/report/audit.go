package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vcfmerge/internal/logging"
	"vcfmerge/internal/mojibake"
	"vcfmerge/internal/services"
	"vcfmerge/internal/textutil"
	"vcfmerge/internal/vcard"
)

// similarIdentityThreshold is the cosine score at which two final identities
// are reported as probably the same person. Folding only joins exact
// identity-key matches, so near-misses survive into the output and belong in
// the audit.
const similarIdentityThreshold = 0.8

// AuditPath is where the audit report lands for a given output file.
func AuditPath(outputPath string) string {
	return outputPath + ".audit.txt"
}

// FieldCounts summarizes how populated one record is. Present distinguishes
// a sparse record from an identity absent from that set entirely.
type FieldCounts struct {
	Present   bool
	Phones    int
	Emails    int
	Addresses int
	Notes     int
	Birthday  bool
	Title     bool
	Org       bool
	Mojibake  bool
}

func countsFor(rec *vcard.Record) FieldCounts {
	return FieldCounts{
		Present:   true,
		Phones:    len(rec.Phones),
		Emails:    len(rec.Emails),
		Addresses: len(rec.Addresses),
		Notes:     len(rec.Notes),
		Birthday:  rec.HasRealBirthday(),
		Title:     rec.Title != "",
		Org:       len(rec.Orgs) > 0,
		Mojibake:  recordDamaged(rec),
	}
}

// recordDamaged reports whether any of the record's text still carries
// mojibake markers.
func recordDamaged(rec *vcard.Record) bool {
	if mojibake.Damaged(rec.StructuredName) || mojibake.Damaged(rec.FormattedName) || mojibake.Damaged(rec.Title) {
		return true
	}
	for _, list := range [][]vcard.TaggedValue{rec.Phones, rec.Emails, rec.Addresses, rec.Orgs, rec.Notes} {
		for _, tv := range list {
			if mojibake.Damaged(tv.String()) {
				return true
			}
		}
	}
	for _, key := range rec.ExtensionKeys() {
		if value, ok := rec.Extension(key); ok && mojibake.Damaged(value) {
			return true
		}
	}
	return false
}

// IdentityAudit is one identity's field population across the three stages.
type IdentityAudit struct {
	Identity string
	Key      string
	Source   FieldCounts
	Update   FieldCounts
	Final    FieldCounts
}

// SimilarPair is two final identities whose names score as near-equal.
type SimilarPair struct {
	A     string
	B     string
	Score float64
}

// AuditResult compares the record sets before and after merging.
type AuditResult struct {
	Entries []IdentityAudit
	Similar []SimilarPair

	dumps []string
}

// Auditor builds merge audits.
type Auditor struct {
	logger *slog.Logger
}

// NewAuditor builds an auditor.
func NewAuditor(logger *slog.Logger) *Auditor {
	return &Auditor{logger: logging.NewComponentLogger(logger, "audit")}
}

// auditRecord pairs a record with the name it was stored under.
type auditRecord struct {
	name string
	rec  *vcard.Record
}

// Audit compares the three stages of a run per identity key and flags
// similar names that stayed separate. Sets may be nil.
func (a *Auditor) Audit(ctx context.Context, source, update, final *vcard.Set) *AuditResult {
	logger := logging.WithContext(ctx, a.logger)
	sources := bestByKey(source)
	updates := bestByKey(update)
	finals := bestByKey(final)

	keys := make(map[string]struct{}, len(sources)+len(updates)+len(finals))
	for key := range sources {
		keys[key] = struct{}{}
	}
	for key := range updates {
		keys[key] = struct{}{}
	}
	for key := range finals {
		keys[key] = struct{}{}
	}

	entries := make([]IdentityAudit, 0, len(keys))
	for key := range keys {
		entry := IdentityAudit{Key: key}
		if ar, ok := finals[key]; ok {
			entry.Identity = ar.name
			entry.Final = countsFor(ar.rec)
		}
		if ar, ok := updates[key]; ok {
			if entry.Identity == "" {
				entry.Identity = ar.name
			}
			entry.Update = countsFor(ar.rec)
		}
		if ar, ok := sources[key]; ok {
			if entry.Identity == "" {
				entry.Identity = ar.name
			}
			entry.Source = countsFor(ar.rec)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Identity != entries[j].Identity {
			return entries[i].Identity < entries[j].Identity
		}
		return entries[i].Key < entries[j].Key
	})

	result := &AuditResult{
		Entries: entries,
		Similar: similarIdentities(final),
		dumps:   dumpRecords(final),
	}
	for _, pair := range result.Similar {
		logger.Debug("similar identities kept apart",
			logging.String("name_a", pair.A),
			logging.String("name_b", pair.B),
			logging.Float64("score", pair.Score))
	}
	logger.Info("audit complete",
		logging.Int("identities", len(result.Entries)),
		logging.Int("similar_pairs", len(result.Similar)))
	return result
}

// bestByKey collapses a set to one record per identity key. Pre-merge sets
// can hold several spellings of one identity; the audit compares the most
// complete record of each stage.
func bestByKey(set *vcard.Set) map[string]auditRecord {
	out := make(map[string]auditRecord)
	if set == nil {
		return out
	}
	for _, name := range set.Names() {
		rec, ok := set.Get(name)
		if !ok {
			continue
		}
		key := rec.Key()
		if cur, exists := out[key]; exists && cur.rec.CompletenessScore() >= rec.CompletenessScore() {
			continue
		}
		out[key] = auditRecord{name: name, rec: rec}
	}
	return out
}

// similarIdentities scores every pair of final names with IDF-weighted
// fingerprints and reports the ones above the threshold.
func similarIdentities(final *vcard.Set) []SimilarPair {
	if final == nil {
		return nil
	}
	names := final.Names()
	prints := make([]*textutil.Fingerprint, len(names))
	corpus := textutil.NewCorpus()
	for i, name := range names {
		prints[i] = textutil.NewFingerprint(name)
		corpus.Add(prints[i])
	}
	idf := corpus.IDF()
	for i := range prints {
		prints[i] = prints[i].WithIDF(idf)
	}
	var pairs []SimilarPair
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			score := textutil.CosineSimilarity(prints[i], prints[j])
			if score >= similarIdentityThreshold {
				pairs = append(pairs, SimilarPair{A: names[i], B: names[j], Score: score})
			}
		}
	}
	return pairs
}

func dumpRecords(final *vcard.Set) []string {
	if final == nil {
		return nil
	}
	dumps := make([]string, 0, final.Len())
	for _, name := range final.Names() {
		rec, ok := final.Get(name)
		if !ok {
			continue
		}
		dumps = append(dumps, dumpRecord(name, rec))
	}
	return dumps
}

// dumpRecord renders one final record's full field set as an indented block.
func dumpRecord(name string, rec *vcard.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", name)
	scalar := func(field, value string) {
		if value != "" {
			fmt.Fprintf(&b, "    %s:%s\n", field, value)
		}
	}
	scalar(vcard.FieldStructuredName, rec.StructuredName)
	scalar(vcard.FieldFormattedName, rec.FormattedName)
	scalar(vcard.FieldBirthday, rec.Birthday)
	scalar(vcard.FieldTitle, rec.Title)
	for _, list := range [][]vcard.TaggedValue{rec.Orgs, rec.Addresses, rec.Phones, rec.Emails, rec.Notes} {
		for _, tv := range list {
			fmt.Fprintf(&b, "    %s\n", tv.String())
		}
	}
	for _, key := range rec.ExtensionKeys() {
		if value, ok := rec.Extension(key); ok {
			fmt.Fprintf(&b, "    %s:%s\n", key, value)
		}
	}
	return b.String()
}

// Table renders the per-identity comparison. Each cell reads
// source/update/final; "-" marks an identity missing from that stage.
func (r *AuditResult) Table() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"IDENTITY", "TEL", "EMAIL", "ADR", "NOTE", "BDAY", "TITLE", "ORG", "MOJIBAKE"})
	for _, e := range r.Entries {
		tw.AppendRow(table.Row{
			e.Identity,
			countTriple(e, func(c FieldCounts) int { return c.Phones }),
			countTriple(e, func(c FieldCounts) int { return c.Emails }),
			countTriple(e, func(c FieldCounts) int { return c.Addresses }),
			countTriple(e, func(c FieldCounts) int { return c.Notes }),
			boolTriple(e, func(c FieldCounts) bool { return c.Birthday }),
			boolTriple(e, func(c FieldCounts) bool { return c.Title }),
			boolTriple(e, func(c FieldCounts) bool { return c.Org }),
			boolTriple(e, func(c FieldCounts) bool { return c.Mojibake }),
		})
	}
	configs := make([]table.ColumnConfig, 0, 9)
	for i := 2; i <= 9; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// Render formats the full audit artifact: comparison table, similar-name
// pairs, then the per-identity dump of the final records.
func (r *AuditResult) Render() string {
	var b strings.Builder
	b.WriteString(r.Table())
	b.WriteString("\n")
	if len(r.Similar) > 0 {
		b.WriteString("\nsimilar identities kept apart:\n")
		for _, pair := range r.Similar {
			fmt.Fprintf(&b, "  %s ~ %s (%.2f)\n", pair.A, pair.B, pair.Score)
		}
	}
	if len(r.dumps) > 0 {
		b.WriteString("\nfinal records:\n\n")
		for i, dump := range r.dumps {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(dump)
		}
	}
	return b.String()
}

// WriteFile writes the rendered report to the given path.
func (r *AuditResult) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(r.Render()), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "report", "write audit report", path, err)
	}
	return nil
}

func countTriple(e IdentityAudit, pick func(FieldCounts) int) string {
	return countCell(e.Source, pick) + "/" + countCell(e.Update, pick) + "/" + countCell(e.Final, pick)
}

func countCell(c FieldCounts, pick func(FieldCounts) int) string {
	if !c.Present {
		return "-"
	}
	return strconv.Itoa(pick(c))
}

func boolTriple(e IdentityAudit, pick func(FieldCounts) bool) string {
	return boolCell(e.Source, pick) + "/" + boolCell(e.Update, pick) + "/" + boolCell(e.Final, pick)
}

func boolCell(c FieldCounts, pick func(FieldCounts) bool) string {
	if !c.Present {
		return "-"
	}
	if pick(c) {
		return "y"
	}
	return "n"
}
