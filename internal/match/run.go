// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Options configures Run.
type Options struct {
	// Logger receives match and duplicate diagnostics. Nil discards them.
	Logger *zerolog.Logger
}

// Run matches sources against targets with profile p and classifies the
// outcome. Targets that already carry a barcode must be filtered out by the
// caller first; Run overwrites whatever barcode a matched target holds.
func Run(sources, targets []types.Record, p Profile, opts Options) *Report {
	layout := LayoutOf(p)

	var r *Report
	if IsLinear(p) {
		out, srcBad, tgtBad := MatchLinear(sources, targets, p, layout, opts.Logger)
		r = Classify(out, nil, nil, srcBad, tgtBad)
	} else {
		srcIndex, srcDups, srcBad := BuildIndex(sources, p.SourceKey, IndexOptions{
			Side: SourceSide, IDField: layout.SourceID, Logger: opts.Logger,
		})
		tgtIndex, tgtDups, tgtBad := BuildIndex(targets, p.TargetKey, IndexOptions{
			Side: TargetSide, IDField: layout.TargetID, Logger: opts.Logger,
		})
		out := Match(srcIndex, tgtIndex, layout, opts.Logger)
		r = Classify(out, srcDups, tgtDups, srcBad, tgtBad)
	}
	r.Profile = p.Name()
	return r
}
