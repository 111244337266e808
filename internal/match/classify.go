// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Report partitions every record of a run. Each source record is in exactly
// one of Matched, UnmatchedSource, or DuplicateSource; each target record is
// in exactly one of Matched, UnmatchedTarget, DuplicateTarget, or Precoded.
// Malformed records are listed again in the Malformed slices for diagnosis.
type Report struct {
	Profile string

	Matched         []Pair
	UnmatchedSource []types.Record
	UnmatchedTarget []types.Record
	DuplicateSource []Duplicate
	DuplicateTarget []Duplicate

	MalformedSource []Malformed
	MalformedTarget []Malformed

	// Precoded holds targets that already had a barcode and were filtered
	// out by the caller before matching.
	Precoded []types.Record
}

// Counts is the per-bucket summary of a Report.
type Counts struct {
	Matched         int `json:"matched" yaml:"matched"`
	UnmatchedSource int `json:"unmatched_source" yaml:"unmatched_source"`
	UnmatchedTarget int `json:"unmatched_target" yaml:"unmatched_target"`
	DuplicateSource int `json:"duplicate_source" yaml:"duplicate_source"`
	DuplicateTarget int `json:"duplicate_target" yaml:"duplicate_target"`
	MalformedSource int `json:"malformed_source" yaml:"malformed_source"`
	MalformedTarget int `json:"malformed_target" yaml:"malformed_target"`
	Precoded        int `json:"precoded" yaml:"precoded"`
}

// Source returns the number of source records accounted for.
func (c Counts) Source() int {
	return c.Matched + c.UnmatchedSource + c.DuplicateSource
}

// Target returns the number of target records accounted for.
func (c Counts) Target() int {
	return c.Matched + c.UnmatchedTarget + c.DuplicateTarget + c.Precoded
}

// Classify assembles a Report. Malformed records join the unmatched bucket of
// their side after the records the matcher left over.
func Classify(out Output, srcDups, tgtDups []Duplicate, srcBad, tgtBad []Malformed) *Report {
	r := &Report{
		Matched:         out.Matched,
		UnmatchedSource: out.UnmatchedSource,
		UnmatchedTarget: out.UnmatchedTarget,
		DuplicateSource: srcDups,
		DuplicateTarget: tgtDups,
		MalformedSource: srcBad,
		MalformedTarget: tgtBad,
	}
	for _, m := range srcBad {
		r.UnmatchedSource = append(r.UnmatchedSource, m.Record)
	}
	for _, m := range tgtBad {
		r.UnmatchedTarget = append(r.UnmatchedTarget, m.Record)
	}
	return r
}

// Counts summarizes the report.
func (r *Report) Counts() Counts {
	return Counts{
		Matched:         len(r.Matched),
		UnmatchedSource: len(r.UnmatchedSource),
		UnmatchedTarget: len(r.UnmatchedTarget),
		DuplicateSource: len(r.DuplicateSource),
		DuplicateTarget: len(r.DuplicateTarget),
		MalformedSource: len(r.MalformedSource),
		MalformedTarget: len(r.MalformedTarget),
		Precoded:        len(r.Precoded),
	}
}

// MatchedTargets returns the annotated target records.
func (r *Report) MatchedTargets() []types.Record {
	return Output{Matched: r.Matched}.MatchedTargets()
}

// Verify checks that the buckets account for sourceTotal and targetTotal
// input records, where targetTotal includes any precoded targets.
func (r *Report) Verify(sourceTotal, targetTotal int) error {
	c := r.Counts()
	if c.Source() != sourceTotal {
		return fmt.Errorf("%w: %d source records in, %d classified", ErrUnbalanced, sourceTotal, c.Source())
	}
	if c.Target() != targetTotal {
		return fmt.Errorf("%w: %d target records in, %d classified", ErrUnbalanced, targetTotal, c.Target())
	}
	return nil
}
