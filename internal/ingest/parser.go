package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"

	"vcfmerge/internal/config"
	"vcfmerge/internal/logging"
	"vcfmerge/internal/mojibake"
	"vcfmerge/internal/services"
	"vcfmerge/internal/vcard"
)

const (
	beginMarker = "BEGIN:VCARD"
	endMarker   = "END:VCARD"

	// progressInterval is how many logical lines pass between progress logs.
	progressInterval = 2000
)

// itemPrefix is the legacy grouped-item spelling some exporters put in front
// of TEL, EMAIL, and ADR keys.
var itemPrefix = regexp.MustCompile(`^(?i)item\d+\.`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser assembles card files into record sets. One parser is safe to reuse
// across files; per-file state lives on the stack of each call.
type Parser struct {
	cfg      *config.Config
	logger   *slog.Logger
	repairer *mojibake.Repairer
	miner    *Miner
	rules    phoneRules
	trace    logging.TraceSet
}

// NewParser builds a parser from the run configuration. The repairer is
// shared with the merge stage so both see identical text; pass nil to repair
// with the built-in tables only.
func NewParser(cfg *config.Config, repairer *mojibake.Repairer, logger *slog.Logger) *Parser {
	if repairer == nil {
		repairer = mojibake.New(nil, logger)
	}
	keys := make([]string, 0, len(cfg.Logging.TraceIdentities))
	for _, identity := range cfg.Logging.TraceIdentities {
		keys = append(keys, vcard.IdentityKey(identity))
	}
	return &Parser{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "ingest"),
		repairer: repairer,
		miner:    NewMiner(cfg),
		rules:    phoneRulesFromConfig(cfg),
		trace:    logging.NewTraceSet(keys...),
	}
}

// ParseFile reads one card file. Content that is not valid UTF-8 is decoded
// once more under the configured fallback charset before parsing; the two
// attempts never interleave.
func (p *Parser) ParseFile(ctx context.Context, path string) (*vcard.Set, error) {
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("reading card file", logging.String("file", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "ingest", "read file", path, err)
	}
	text, err := p.decodeContent(data, logger)
	if err != nil {
		return nil, err
	}
	set, err := p.Parse(ctx, strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	logger.Info("card file read",
		logging.String("file", path), logging.Int("contacts", set.Len()))
	return set, nil
}

// decodeContent returns the file content as UTF-8 text. A leading byte order
// mark is dropped so the first begin marker still matches.
func (p *Parser) decodeContent(data []byte, logger *slog.Logger) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	if !p.cfg.Encoding.FallbackEnabled {
		return "", services.Wrap(services.ErrValidation, "ingest", "decode file",
			"content is not valid UTF-8 and encoding fallback is disabled", nil)
	}
	charset := p.cfg.Encoding.FallbackCharset
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return "", services.Wrap(services.ErrConfiguration, "ingest", "decode file",
			fmt.Sprintf("unknown fallback charset %q", charset), err)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "ingest", "decode file",
			fmt.Sprintf("fallback decode as %s failed", charset), err)
	}
	logger.Info("decoded with fallback charset", logging.String("charset", charset))
	return string(decoded), nil
}

// card is the in-flight record between begin and end markers. Its logger
// carries the identity attribute once the formatted name is known, lowered
// to debug for traced identities.
type card struct {
	rec    *vcard.Record
	logger *slog.Logger
}

// Parse assembles records from an unfolded logical-line stream. Anything
// that is not a well-formed card line is skipped, never fatal.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*vcard.Set, error) {
	logger := logging.WithContext(ctx, p.logger)
	set := vcard.NewSet()
	unfolder := vcard.NewUnfolder(r)
	sampler := logging.NewProgressSampler(progressInterval)

	var current *card
	var lines int64
	for unfolder.Next() {
		lines++
		if sampler.ShouldLog(lines, "parse") {
			logger.Info("parsing progress", logging.Int64("lines", lines))
		}
		line := strings.TrimSpace(unfolder.Line())
		if line == "" {
			continue
		}
		switch {
		case line == beginMarker:
			// A begin inside an open card abandons the previous one.
			current = &card{rec: vcard.NewRecord(), logger: logger}
		case strings.HasPrefix(line, endMarker):
			if current == nil {
				logger.Debug("end marker without open card")
				continue
			}
			p.finish(current, set)
			current = nil
		default:
			if current == nil {
				logger.Debug("line outside card skipped", "line", line)
				continue
			}
			p.applyField(current, logger, line)
		}
	}
	if err := unfolder.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, "ingest", "read lines", "", err)
	}
	logger.Debug("parse finished",
		logging.Int64("lines", lines), logging.Int("contacts", set.Len()))
	return set, nil
}

// finish runs the deferred mining passes and stores the record under its
// formatted name. Cards that never established one are dropped.
func (p *Parser) finish(c *card, set *vcard.Set) {
	name := c.rec.FormattedName
	if name == "" {
		c.logger.Debug("card without display name discarded")
		return
	}
	p.miner.MineEmails(c.rec, c.logger)
	p.miner.MinePhones(c.rec, c.logger)
	p.miner.MineAddresses(c.rec, c.logger)
	p.miner.CleanupNotes(c.rec, c.logger)
	set.Put(name, c.rec)
	c.logger.Debug("card completed",
		"phones", len(c.rec.Phones), "emails", len(c.rec.Emails),
		"addresses", len(c.rec.Addresses), "notes", len(c.rec.Notes))
}

// applyField decodes, repairs, and routes one logical field line into the
// open record.
func (p *Parser) applyField(c *card, base *slog.Logger, line string) {
	head, payload, ok := strings.Cut(line, ":")
	if !ok {
		c.logger.Debug("line without separator skipped", "line", line)
		return
	}
	value := p.repairer.Repair(vcard.DecodeValue(head, payload, c.logger))

	name, paramSegment, _ := strings.Cut(head, ";")
	if prefix := itemPrefix.FindString(name); prefix != "" {
		if stripped := name[len(prefix):]; isGroupedField(stripped) {
			name = stripped
		}
	}
	params := vcard.ParseParams(paramSegment)

	switch upper := strings.ToUpper(strings.TrimSpace(name)); {
	case upper == vcard.FieldStructuredName:
		c.rec.StructuredName = strings.TrimSpace(value)
	case upper == vcard.FieldFormattedName:
		trimmed := strings.TrimSpace(value)
		c.rec.FormattedName = trimmed
		c.logger = p.trace.LoggerFor(
			base.With(logging.String(logging.FieldIdentity, trimmed)),
			vcard.IdentityKey(trimmed))
	case upper == vcard.FieldBirthday:
		if c.rec.Birthday != "" {
			c.logger.Debug("additional birthday ignored", "value", value)
			return
		}
		c.rec.Birthday = NormalizeBirthday(scalarValue(value))
		c.logger.Debug("birthday set", "value", c.rec.Birthday)
	case strings.HasPrefix(upper, vcard.FieldPhone):
		p.parsePhone(c, upper == vcard.FieldPhone, params, value, line)
	case upper == vcard.FieldEmail:
		p.parseEmail(c, params, value)
	case upper == vcard.FieldAddress:
		p.parseAddress(c, params, value)
	case upper == vcard.FieldTitle:
		c.rec.Title = scalarValue(value)
		c.logger.Debug("title set", "value", c.rec.Title)
	case upper == vcard.FieldNote:
		c.rec.Notes = append(c.rec.Notes, vcard.TaggedValue{Name: vcard.FieldNote, Params: params, Payload: value})
	case upper == vcard.FieldOrg:
		c.rec.Orgs = append(c.rec.Orgs, vcard.TaggedValue{Name: vcard.FieldOrg, Params: params, Payload: value})
	default:
		c.rec.SetExtension(head, scalarValue(value))
	}
}

// parsePhone accepts the structured TEL spellings first and falls back to
// pulling a long digit run out of anything else keyed like a phone. Every
// candidate passes the configured validation before it is kept.
func (p *Parser) parsePhone(c *card, exact bool, params []vcard.Param, value, line string) {
	trimmed := strings.TrimSpace(value)
	if exact {
		if len(params) > 0 {
			if phoneRun.MatchString(trimmed) && p.rules.valid(trimmed, c.rec.Phones, c.logger) {
				c.rec.Phones = append(c.rec.Phones, vcard.TaggedValue{
					Name: vcard.FieldPhone, Params: params, Payload: trimmed,
				})
				c.logger.Debug("phone accepted", "phone", trimmed)
				return
			}
		} else if p.rules.valid(trimmed, c.rec.Phones, c.logger) {
			c.rec.Phones = append(c.rec.Phones, vcard.NewTagged(vcard.FieldPhone, trimmed))
			c.logger.Debug("phone accepted", "phone", trimmed)
			return
		}
	}
	if run := strings.TrimSpace(phoneFallback.FindString(value)); run != "" {
		if p.rules.valid(run, c.rec.Phones, c.logger) {
			c.rec.Phones = append(c.rec.Phones, vcard.NewTagged(vcard.FieldPhone, run))
			c.logger.Debug("phone extracted from digit run", "phone", run)
			return
		}
	}
	logging.WarnWithContext(c.logger, "no valid phone number extracted", "phone_parse_failed",
		logging.String("line", line),
		logging.String(logging.FieldErrorHint, "check the value against phone.min_digits"),
		logging.String(logging.FieldImpact, "line ignored, record keeps its other phones"))
}

// parseEmail keeps the first address-shaped match; with no match the raw
// trimmed value is stored so nothing disappears silently.
func (p *Parser) parseEmail(c *card, params []vcard.Param, value string) {
	if email := emailPattern.FindString(value); email != "" {
		c.rec.Emails = append(c.rec.Emails, vcard.TaggedValue{Name: vcard.FieldEmail, Params: params, Payload: email})
		c.logger.Debug("email accepted", "email", email)
		return
	}
	raw := scalarValue(value)
	c.rec.Emails = append(c.rec.Emails, vcard.TaggedValue{Name: vcard.FieldEmail, Params: params, Payload: raw})
	c.logger.Debug("email kept raw, no address pattern", "value", raw)
}

// parseAddress normalizes the payload to exactly seven components and
// appends; a record keeps every address it came with.
func (p *Parser) parseAddress(c *card, params []vcard.Param, value string) {
	parts := strings.Split(value, ";")
	for len(parts) < 7 {
		parts = append(parts, "")
	}
	payload := strings.Join(parts[:7], ";")
	c.rec.Addresses = append(c.rec.Addresses, vcard.TaggedValue{
		Name: vcard.FieldAddress, Params: params, Payload: payload,
	})
	c.logger.Debug("address accepted", "address", payload)
}

// isGroupedField reports whether the grouped-item prefix applies to this
// field key; only phone, email, and address use the legacy spelling.
func isGroupedField(name string) bool {
	switch strings.ToUpper(name) {
	case vcard.FieldPhone, vcard.FieldEmail, vcard.FieldAddress:
		return true
	}
	return false
}

// scalarValue trims trailing semicolons and surrounding whitespace off
// single-value payloads.
func scalarValue(value string) string {
	return strings.TrimSpace(strings.TrimRight(value, ";"))
}
