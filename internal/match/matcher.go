// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Pair is a source record joined to a target record. Target already carries
// the copied barcode.
type Pair struct {
	Key    Key
	Source types.Record
	Target types.Record
}

// Output is the raw result of joining two keyed populations.
type Output struct {
	Matched         []Pair
	UnmatchedSource []types.Record
	UnmatchedTarget []types.Record
}

// MatchedTargets returns the annotated target records in match order.
func (o Output) MatchedTargets() []types.Record {
	out := make([]types.Record, len(o.Matched))
	for i, p := range o.Matched {
		out[i] = p.Target
	}
	return out
}

// Match joins the two indexes on exact key equality. For every source key
// found in target, the source barcode is copied onto the target record.
// Unmatched records come back in index insertion order.
func Match(source, target *Index, layout Layout, logger *zerolog.Logger) Output {
	log := orNop(logger)
	var out Output

	for _, k := range source.keys {
		tgt, ok := target.records[k]
		if !ok {
			out.UnmatchedSource = append(out.UnmatchedSource, source.records[k])
			continue
		}
		src := source.records[k]
		annotate(src, tgt, layout)
		out.Matched = append(out.Matched, Pair{Key: k, Source: src, Target: tgt})
		log.Info().Str("source_id", src.String(layout.SourceID)).Str("target_id", tgt.String(layout.TargetID)).
			Msgf("Matched item %s with top container %s", src.String(layout.SourceID), tgt.String(layout.TargetID))
	}

	for _, k := range target.keys {
		if !source.Has(k) {
			out.UnmatchedTarget = append(out.UnmatchedTarget, target.records[k])
		}
	}
	return out
}

// MatchLinear compares every source against every target without building
// indexes. Each source takes the first unclaimed target with an equal key.
// Duplicates are not detected. Match is preferred for new profiles.
func MatchLinear(sources, targets []types.Record, p Profile, layout Layout, logger *zerolog.Logger) (Output, []Malformed, []Malformed) {
	log := orNop(logger)
	srcKeys, srcOK, srcBad := extractAll(sources, p.SourceKey, layout.SourceID, SourceSide, log)
	tgtKeys, tgtOK, tgtBad := extractAll(targets, p.TargetKey, layout.TargetID, TargetSide, log)

	claimed := make([]bool, len(targets))
	var out Output

	for i, src := range sources {
		if !srcOK[i] {
			continue
		}
		hit := -1
		for j := range targets {
			if tgtOK[j] && !claimed[j] && tgtKeys[j] == srcKeys[i] {
				hit = j
				break
			}
		}
		if hit < 0 {
			out.UnmatchedSource = append(out.UnmatchedSource, src)
			continue
		}
		claimed[hit] = true
		tgt := targets[hit]
		annotate(src, tgt, layout)
		out.Matched = append(out.Matched, Pair{Key: srcKeys[i], Source: src, Target: tgt})
		log.Info().Str("source_id", src.String(layout.SourceID)).Str("target_id", tgt.String(layout.TargetID)).
			Msgf("Matched item %s with top container %s", src.String(layout.SourceID), tgt.String(layout.TargetID))
	}

	for j, tgt := range targets {
		if tgtOK[j] && !claimed[j] {
			out.UnmatchedTarget = append(out.UnmatchedTarget, tgt)
		}
	}
	return out, srcBad, tgtBad
}

func annotate(src, tgt types.Record, layout Layout) {
	tgt.Set(layout.TargetCode, src.String(layout.SourceCode))
}

func extractAll(records []types.Record, key KeyFunc, idField string, side Side, log *zerolog.Logger) ([]Key, []bool, []Malformed) {
	keys := make([]Key, len(records))
	ok := make([]bool, len(records))
	var bad []Malformed
	for i, r := range records {
		k, err := key(r)
		if err == nil && k.Valid() {
			keys[i], ok[i] = k, true
			continue
		}
		if err == nil {
			err = errEmptyComponent(k)
		}
		id := r.String(idField)
		log.Info().Str("side", string(side)).Str("id", id).Err(err).Msg("Skipping record with unparseable key")
		bad = append(bad, Malformed{ID: id, Reason: err.Error(), Record: r})
	}
	return keys, ok, bad
}
