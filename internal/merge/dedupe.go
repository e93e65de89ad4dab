package merge

import (
	"log/slog"
	"strings"

	"vcfmerge/internal/logging"
	"vcfmerge/internal/vcard"
)

// Deduplicator folds records whose names normalize to the same identity key.
type Deduplicator struct {
	engine *Engine
	logger *slog.Logger
}

// NewDeduplicator wraps a merge engine for whole-set folding.
func NewDeduplicator(engine *Engine, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		engine: engine,
		logger: logging.NewComponentLogger(logger, "dedupe"),
	}
}

// Fold groups the set by identity key and merges each group down to a single
// record. The most complete member seeds the fold; the rest merge into it one
// by one in stored-name order. Returns the reduced set and the number of
// records folded away.
func (d *Deduplicator) Fold(set *vcard.Set) (*vcard.Set, int) {
	groups := make(map[string][]string)
	order := make([]string, 0, set.Len())
	for _, name := range set.Names() {
		rec, ok := set.Get(name)
		if !ok {
			continue
		}
		key := rec.Key()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], name)
	}

	out := vcard.NewSet()
	folded := 0
	for _, key := range order {
		names := groups[key]
		if len(names) == 1 {
			rec, _ := set.Get(names[0])
			out.Put(names[0], rec)
			continue
		}

		seedName := names[0]
		seed, _ := set.Get(seedName)
		seedScore := seed.CompletenessScore()
		for _, name := range names[1:] {
			rec, _ := set.Get(name)
			if score := rec.CompletenessScore(); score > seedScore {
				seedName = name
				seed = rec
				seedScore = score
			}
		}

		merged := seed
		for _, name := range names {
			if name == seedName {
				continue
			}
			rec, _ := set.Get(name)
			merged = d.engine.Merge(merged, rec)
		}

		finalName := merged.FormattedName
		if finalName == "" {
			finalName = seedName
		}
		out.Put(finalName, merged)
		folded += len(names) - 1
		attrs := append(
			logging.DecisionAttrsWithOptions("duplicate_fold", finalName, "same_identity_key", strings.Join(names, ", ")),
			logging.String(logging.FieldIdentity, finalName),
			logging.String("identity_key", key),
			logging.Int("seed_score", seedScore))
		d.logger.Info("duplicates folded", logging.Args(attrs...)...)
	}

	d.logger.Info("duplicate folding complete",
		logging.Int("folded", folded),
		logging.Int("remaining", out.Len()))
	return out, folded
}
