package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/internal/aspace"
	"github.com/pdiddy/barcode-sync/internal/logging"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Fetcher reads a single top container.
type Fetcher interface {
	Container(ctx context.Context, uri string) (types.Record, error)
}

// BarcodeRemover reads containers and writes them back without a barcode.
type BarcodeRemover interface {
	Fetcher
	Updater
}

// RemoveResult holds the outcome of a barcode removal batch.
type RemoveResult struct {
	Removed    int
	NoBarcode  int
	Failed     int
	Failures   []Failure
	WouldClear []string
}

// Total returns the number of containers examined.
func (r RemoveResult) Total() int {
	return r.Removed + r.NoBarcode + r.Failed + len(r.WouldClear)
}

// HasFailures reports whether any container failed.
func (r RemoveResult) HasFailures() bool {
	return r.Failed > 0
}

// RemoveBarcodes clears the barcode of every container in uris that still
// has one. With dryRun it only lists them in WouldClear.
func RemoveBarcodes(ctx context.Context, rm BarcodeRemover, uris []string, dryRun bool, logger *zerolog.Logger, w io.Writer) RemoveResult {
	log := orNop(logger)
	var result RemoveResult

	for _, uri := range uris {
		rec, err := rm.Container(ctx, uri)
		if err != nil {
			log.Error().Err(err).Str("uri", uri).Msg("Could not fetch top container")
			result.Failed++
			result.Failures = append(result.Failures, Failure{ID: uri, Err: err})
			continue
		}
		if !rec.Has("barcode") {
			result.NoBarcode++
			continue
		}
		if dryRun {
			result.WouldClear = append(result.WouldClear, uri)
			continue
		}
		rec.Delete("barcode")
		if err := rm.Update(ctx, rec); err != nil {
			log.Error().Err(err).Str("uri", uri).Msg("Could not delete barcode")
			result.Failed++
			result.Failures = append(result.Failures, Failure{ID: uri, Err: err})
			continue
		}
		log.Info().Str("uri", uri).Msgf("Deleted barcode for top container %s", uri)
		result.Removed++
	}

	if dryRun {
		log.Info().Msg("Dry run: no changes made to ASpace top containers")
		log.Info().Msgf("Would delete barcodes for %d top containers", len(result.WouldClear))
		fmt.Fprintf(w, "would delete barcodes for %d top containers\n", len(result.WouldClear))
	} else {
		log.Info().Msgf("Deleted barcodes for %d top containers", result.Removed)
		fmt.Fprintf(w, "deleted barcodes for %d top containers\n", result.Removed)
	}
	return result
}

// Pager walks all top containers of a repository.
type Pager interface {
	TopContainerPages(ctx context.Context, pageSize int, fn func(page int, results []types.Record) error) error
}

// UnlinkedContainers returns the URIs of top containers that belong to no
// collection, in listing order.
func UnlinkedContainers(ctx context.Context, p Pager, pageSize int, logger *zerolog.Logger) ([]string, error) {
	log := orNop(logger)
	var uris []string
	err := p.TopContainerPages(ctx, pageSize, func(page int, results []types.Record) error {
		log.Info().Int("page", page).Msgf("Page: %d", page)
		for _, rec := range results {
			if aspace.Unlinked(rec) {
				uri := rec.String("uri")
				log.Info().Str("uri", uri).Msgf("Unlinked top container: %s", uri)
				uris = append(uris, uri)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", len(uris)).Msgf("Total unlinked top containers: %d", len(uris))
	return uris, nil
}

// ContainerDeleter reads and deletes top containers.
type ContainerDeleter interface {
	Fetcher
	Delete(ctx context.Context, uri string) error
}

// DeleteResult holds the outcome of an unlinked-container deletion batch.
type DeleteResult struct {
	Deleted  int
	Skipped  []string
	Failed   int
	Failures []Failure
}

// Total returns the number of URIs examined.
func (r DeleteResult) Total() int {
	return r.Deleted + len(r.Skipped) + r.Failed
}

// HasFailures reports whether any deletion failed.
func (r DeleteResult) HasFailures() bool {
	return r.Failed > 0
}

// DeleteUnlinked deletes each container in uris after re-checking that it
// is still unlinked. Missing and linked containers are skipped. With dryRun
// nothing is deleted and Deleted counts what would have been.
func DeleteUnlinked(ctx context.Context, d ContainerDeleter, uris []string, dryRun bool, logger *zerolog.Logger) DeleteResult {
	log := orNop(logger)
	var result DeleteResult

	for _, uri := range uris {
		rec, err := d.Container(ctx, uri)
		if errors.Is(err, aspace.ErrNotFound) {
			log.Error().Err(err).Str("uri", uri).Msgf("Error retrieving top container %s", uri)
			result.Skipped = append(result.Skipped, uri)
			continue
		}
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{ID: uri, Err: err})
			continue
		}
		if !aspace.Unlinked(rec) {
			log.Info().Str("uri", uri).Msgf("Top container %s is linked to a collection. Skipping deletion.", uri)
			result.Skipped = append(result.Skipped, uri)
			continue
		}
		if dryRun {
			log.Info().Str("uri", uri).Msgf("Would delete unlinked top container: %s", uri)
			result.Deleted++
			continue
		}
		if err := d.Delete(ctx, uri); err != nil {
			log.Error().Err(err).Str("uri", uri).Msg("Could not delete top container")
			result.Failed++
			result.Failures = append(result.Failures, Failure{ID: uri, Err: err})
			continue
		}
		log.Info().Str("uri", uri).Msgf("Deleting unlinked top container: %s", uri)
		result.Deleted++
	}

	log.Info().Msgf("Deleted %d top containers", result.Deleted)
	log.Info().Strs("skipped", result.Skipped).Msgf("Skipped %d top containers", len(result.Skipped))
	return result
}

func orNop(l *zerolog.Logger) *zerolog.Logger {
	if l == nil {
		return logging.Nop()
	}
	return l
}
