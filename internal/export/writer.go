package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vcfmerge/internal/config"
	"vcfmerge/internal/logging"
	"vcfmerge/internal/mojibake"
	"vcfmerge/internal/services"
	"vcfmerge/internal/textutil"
	"vcfmerge/internal/vcard"
)

// progressInterval is how many written records pass between progress logs.
const progressInterval = 50

// emptyStructuredName is the N payload written for records that never
// carried one.
const emptyStructuredName = ";;;"

// Writer serializes record sets into the combined output file and, when
// split output is enabled, into one file per contact under the split
// directory.
type Writer struct {
	cfg      *config.Config
	repairer *mojibake.Repairer
	logger   *slog.Logger
}

// NewWriter builds a writer from the run configuration. The repairer only
// normalizes address dedup keys; pass nil to use the built-in tables.
func NewWriter(cfg *config.Config, repairer *mojibake.Repairer, logger *slog.Logger) *Writer {
	if repairer == nil {
		repairer = mojibake.New(nil, logger)
	}
	return &Writer{
		cfg:      cfg,
		repairer: repairer,
		logger:   logging.NewComponentLogger(logger, "export"),
	}
}

// Write renders every record into the configured output path in sorted name
// order and returns how many cards went out. The output file is created even
// when the set is empty so downstream tooling always finds it.
func (w *Writer) Write(ctx context.Context, set *vcard.Set) (int, error) {
	logger := logging.WithContext(ctx, w.logger)
	outputPath := w.cfg.Output.Path
	logger.Info("writing card file",
		logging.String("file", outputPath), logging.Int("contacts", set.Len()))

	splitDir := w.cfg.Output.SplitDir
	if w.cfg.Output.Split {
		if err := os.MkdirAll(splitDir, 0o755); err != nil {
			return 0, services.Wrap(services.ErrIO, "export", "create split directory", splitDir, err)
		}
	}

	names := set.Names()
	if len(names) == 0 {
		logging.WarnWithContext(logger, "no contacts to write", "empty_output",
			logging.String(logging.FieldImpact, "output file will be empty"))
	}

	var combined strings.Builder
	sampler := logging.NewProgressSampler(progressInterval)
	written := 0
	for _, name := range names {
		rec, ok := set.Get(name)
		if !ok {
			continue
		}
		block := w.renderCard(name, rec)
		combined.WriteString(block)
		written++
		if w.cfg.Output.Split {
			if err := w.writeSplit(splitDir, name, rec, block); err != nil {
				return 0, err
			}
		}
		if sampler.ShouldLog(int64(written), "export") {
			logger.Info("writing progress",
				logging.Int("written", written), logging.Int("total", len(names)))
		}
		logger.Debug("card written", logging.String(logging.FieldIdentity, name))
	}

	if err := os.WriteFile(outputPath, []byte(combined.String()), 0o644); err != nil {
		return 0, services.Wrap(services.ErrIO, "export", "write output file", outputPath, err)
	}
	logger.Info("card file written",
		logging.String("file", outputPath), logging.Int("contacts", written))
	return written, nil
}

// renderCard serializes one record in the fixed field order. The same block
// backs the combined file and the record's split file.
func (w *Writer) renderCard(name string, rec *vcard.Record) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line("BEGIN:VCARD")
	line("VERSION:" + w.cfg.Output.Version)

	structured := rec.StructuredName
	if structured == "" {
		structured = emptyStructuredName
	}
	line(vcard.FieldStructuredName + ":" + structured)

	formatted := rec.FormattedName
	if formatted == "" {
		formatted = name
	}
	line(vcard.FieldFormattedName + ":" + formatted)

	// The last organization wins; the line is written even when empty.
	org := ""
	if len(rec.Orgs) > 0 {
		org = rec.Orgs[len(rec.Orgs)-1].Payload
	}
	line(vcard.FieldOrg + ":" + org)

	if rec.Title != "" {
		line(vcard.FieldTitle + ":" + rec.Title)
	}

	birthday := rec.Birthday
	if birthday == "" {
		birthday = vcard.NoBirthday
	}
	line(vcard.FieldBirthday + ":" + birthday)

	for _, addr := range prepareAddresses(rec.Addresses, w.repairer) {
		line(addr.String())
	}
	for _, phone := range preparePhones(rec.Phones) {
		line(w.renderPhone(phone))
	}
	for _, addr := range prepareEmails(rec.Emails) {
		line(vcard.FieldEmail + ":" + addr)
	}
	if body := noteBody(rec.Notes); body != "" {
		line(vcard.FieldNote + ":" + body)
	}
	line("END:VCARD")
	return b.String()
}

// renderPhone serializes one prepared phone. Labeled numbers go out byte for
// byte as they came in; a number without parameters gets a TYPE synthesized
// from its dialing prefix.
func (w *Writer) renderPhone(phone vcard.TaggedValue) string {
	if len(phone.Params) > 0 {
		return phone.String()
	}
	if w.isMobile(phone.Payload) {
		return phone.WithParams(vcard.TypeParams("CELL", "VOICE")...).String()
	}
	return phone.WithParams(vcard.TypeParams("VOICE")...).String()
}

// isMobile reports whether the payload starts with a configured mobile
// prefix once reduced to digits and plus signs.
func (w *Writer) isMobile(payload string) bool {
	dial := dialString(payload)
	if dial == "" {
		return false
	}
	for _, prefix := range w.cfg.Phone.MobilePrefixes {
		if prefix != "" && strings.HasPrefix(dial, prefix) {
			return true
		}
	}
	return false
}

// writeSplit writes one card under the split directory, suffixing the file
// name with _2, _3 and so on until it no longer collides with an earlier
// record.
func (w *Writer) writeSplit(dir, name string, rec *vcard.Record, block string) error {
	base := rec.FormattedName
	if base == "" {
		base = name
	}
	fname := textutil.SanitizeFileName(base)
	path := filepath.Join(dir, fname+".vcf")
	if _, err := os.Stat(path); err == nil {
		suffix := 2
		for {
			candidate := filepath.Join(dir, fmt.Sprintf("%s_%d.vcf", fname, suffix))
			if _, err := os.Stat(candidate); err != nil {
				path = candidate
				break
			}
			suffix++
		}
	}
	if err := os.WriteFile(path, []byte(block), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "export", "write split file", path, err)
	}
	return nil
}
