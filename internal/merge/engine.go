package merge

import (
	"log/slog"
	"strings"

	"vcfmerge/internal/config"
	"vcfmerge/internal/logging"
	"vcfmerge/internal/mojibake"
	"vcfmerge/internal/vcard"
)

// NoteMiner re-runs note extraction after two records combine. Merging can
// hand a record note lines with extractable content it did not have before.
type NoteMiner interface {
	MineEmails(rec *vcard.Record, logger *slog.Logger)
	MinePhones(rec *vcard.Record, logger *slog.Logger)
}

// Engine reconciles two records for the same identity.
type Engine struct {
	preferUpdate map[string]struct{}
	preferSource map[string]struct{}
	miner        NoteMiner
	trace        logging.TraceSet
	logger       *slog.Logger
}

// NewEngine builds an engine from the conflict preferences in cfg. The miner
// re-runs note extraction on merged records; nil skips that step.
func NewEngine(cfg *config.Config, miner NoteMiner, logger *slog.Logger) *Engine {
	keys := make([]string, 0, len(cfg.Logging.TraceIdentities))
	for _, identity := range cfg.Logging.TraceIdentities {
		keys = append(keys, vcard.IdentityKey(identity))
	}
	return &Engine{
		preferUpdate: fieldSet(cfg.Conflict.PreferUpdate),
		preferSource: fieldSet(cfg.Conflict.PreferSource),
		miner:        miner,
		trace:        logging.NewTraceSet(keys...),
		logger:       logging.NewComponentLogger(logger, "merge"),
	}
}

// Merge folds update into a copy of source and returns the result. Neither
// argument is mutated. Fields resolve in a fixed order so conflict logs read
// the same across runs.
func (e *Engine) Merge(source, update *vcard.Record) *vcard.Record {
	merged := source.Clone()
	name := merged.DisplayName()
	if name == "" {
		name = update.DisplayName()
	}
	logger := e.trace.LoggerFor(e.logger.With(logging.String(logging.FieldIdentity, name)), vcard.IdentityKey(name))

	merged.StructuredName = e.resolveScalar(logger, vcard.FieldStructuredName, merged.StructuredName, update.StructuredName)
	merged.FormattedName = e.resolveScalar(logger, vcard.FieldFormattedName, merged.FormattedName, update.FormattedName)
	merged.Birthday = e.resolveScalar(logger, vcard.FieldBirthday, merged.Birthday, update.Birthday)
	merged.Title = e.resolveScalar(logger, vcard.FieldTitle, merged.Title, update.Title)

	merged.Phones = e.resolveList(logger, vcard.FieldPhone, merged.Phones, update.Phones)
	merged.Emails = e.resolveList(logger, vcard.FieldEmail, merged.Emails, update.Emails)
	merged.Addresses = e.resolveList(logger, vcard.FieldAddress, merged.Addresses, update.Addresses)
	merged.Orgs = e.resolveList(logger, vcard.FieldOrg, merged.Orgs, update.Orgs)
	merged.Notes = e.resolveList(logger, vcard.FieldNote, merged.Notes, update.Notes)

	for _, key := range update.ExtensionKeys() {
		updateValue, _ := update.Extension(key)
		if updateValue == "" {
			continue
		}
		if sourceValue, ok := merged.Extension(key); ok && sourceValue != "" {
			merged.SetExtension(key, e.resolveScalar(logger, key, sourceValue, updateValue))
			continue
		}
		merged.SetExtension(key, updateValue)
	}

	// Merged notes can put a label line next to a record that previously had
	// none, so email and phone mining run once more. Address mining does not:
	// the assembler already saw every note line of both sides.
	if len(merged.Notes) > 0 && e.miner != nil {
		e.miner.MineEmails(merged, logger)
		e.miner.MinePhones(merged, logger)
	}
	return merged
}

func (e *Engine) resolveScalar(logger *slog.Logger, field, source, update string) string {
	if update == "" {
		return source
	}
	if source == "" {
		logger.Debug("field adopted from update", logging.String("field", field))
		return update
	}
	if normalizeValue(source) == normalizeValue(update) {
		return source
	}
	result, reason := e.pickSide(field, source, update)
	attrs := append(logging.DecisionAttrs("field_conflict", result, reason),
		logging.String("field", field),
		logging.String("source_value", normalizeValue(source)),
		logging.String("update_value", normalizeValue(update)),
	)
	logger.Info("field conflict resolved", logging.Args(attrs...)...)
	if result == "update" {
		return update
	}
	return source
}

// pickSide decides a scalar conflict: the side without mojibake markers wins
// when exactly one is clean, birthdays avoid the placeholder, then the
// configured preference lists apply with update as the fallback.
func (e *Engine) pickSide(field, source, update string) (string, string) {
	sourceDamage := mojibake.Score(source)
	updateDamage := mojibake.Score(update)
	if sourceDamage == 0 && updateDamage > 0 {
		return "source", "update_has_markers"
	}
	if updateDamage == 0 && sourceDamage > 0 {
		return "update", "source_has_markers"
	}
	if field == vcard.FieldBirthday {
		if update == vcard.NoBirthday {
			return "source", "update_birthday_placeholder"
		}
		if source == vcard.NoBirthday {
			return "update", "source_birthday_placeholder"
		}
		return "source", "birthday_prefers_source"
	}
	if _, ok := e.preferUpdate[strings.ToUpper(field)]; ok {
		return "update", "configured_preference"
	}
	if _, ok := e.preferSource[strings.ToUpper(field)]; ok {
		return "source", "configured_preference"
	}
	return "update", "default_update"
}

func (e *Engine) resolveList(logger *slog.Logger, field string, source, update []vcard.TaggedValue) []vcard.TaggedValue {
	if len(update) == 0 {
		return source
	}
	if len(source) == 0 {
		// Email lists append even here so entries duplicated inside the
		// update itself collapse; other fields adopt the update list as is.
		if field == vcard.FieldEmail {
			return unionValues(nil, update)
		}
		logger.Debug("field adopted from update",
			logging.String("field", field),
			logging.Int("count", len(update)))
		return append([]vcard.TaggedValue(nil), update...)
	}
	sourceDamage := listDamage(source)
	updateDamage := listDamage(update)
	if sourceDamage == 0 && updateDamage > 0 {
		attrs := append(logging.DecisionAttrs("field_conflict", "source", "update_has_markers"),
			logging.String("field", field),
			logging.Int("update_markers", updateDamage),
		)
		logger.Info("field conflict resolved", logging.Args(attrs...)...)
		return source
	}
	if updateDamage == 0 && sourceDamage > 0 {
		attrs := append(logging.DecisionAttrs("field_conflict", "update", "source_has_markers"),
			logging.String("field", field),
			logging.Int("source_markers", sourceDamage),
		)
		logger.Info("field conflict resolved", logging.Args(attrs...)...)
		return append([]vcard.TaggedValue(nil), update...)
	}
	combined := unionValues(source, update)
	if added := len(combined) - len(source); added > 0 {
		logger.Debug("field lists merged",
			logging.String("field", field),
			logging.Int("added", added),
			logging.Int("total", len(combined)))
	}
	return combined
}

// unionValues keeps source order and appends update entries whose serialized
// form is new. Entries that differ only in formatting both survive; the
// writer owns that second tier of deduplication.
func unionValues(source, update []vcard.TaggedValue) []vcard.TaggedValue {
	seen := make(map[string]struct{}, len(source)+len(update))
	out := make([]vcard.TaggedValue, 0, len(source)+len(update))
	for _, v := range source {
		key := v.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	for _, v := range update {
		key := v.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func listDamage(values []vcard.TaggedValue) int {
	total := 0
	for _, v := range values {
		total += mojibake.Score(v.Payload)
	}
	return total
}

// normalizeValue reduces a payload to its comparable core: structured
// components split on ";", empty fragments and lowercase parameter echoes
// dropped, the rest joined with single spaces.
func normalizeValue(payload string) string {
	parts := strings.Split(payload, ";")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" || strings.HasPrefix(trimmed, "type=") {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

func fieldSet(fields []string) map[string]struct{} {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}
