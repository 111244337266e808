// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/internal/match"
	"github.com/pdiddy/barcode-sync/internal/report"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Updater posts a modified record back to its system.
type Updater interface {
	Update(ctx context.Context, rec types.Record) error
}

// Failure is one record that could not be written.
type Failure struct {
	ID  string
	Err error
}

// WriteBackResult holds the outcome of a batch of updates.
type WriteBackResult struct {
	Updated  int
	Failed   int
	Failures []Failure
}

// Total returns the number of records attempted.
func (r WriteBackResult) Total() int {
	return r.Updated + r.Failed
}

// HasFailures reports whether any update failed.
func (r WriteBackResult) HasFailures() bool {
	return r.Failed > 0
}

// WriteBack posts every record through u, continuing past individual
// failures. A context cancellation stops the batch.
func WriteBack(ctx context.Context, u Updater, records []types.Record, layout match.Layout, log *zerolog.Logger, w io.Writer) WriteBackResult {
	log = orNop(log)
	var result WriteBackResult
	for _, rec := range records {
		id := rec.String(layout.TargetID)
		if ctx.Err() != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{ID: id, Err: ctx.Err()})
			continue
		}
		if err := u.Update(ctx, rec); err != nil {
			log.Error().Err(err).Str("uri", id).Msg("Failed to add barcode to top container")
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			result.Failed++
			result.Failures = append(result.Failures, Failure{ID: id, Err: err})
			continue
		}
		log.Info().Str("uri", id).Str("barcode", rec.String(layout.TargetCode)).
			Msgf("%s %s", report.AddedBarcodeMessage, id)
		result.Updated++
	}
	return result
}
