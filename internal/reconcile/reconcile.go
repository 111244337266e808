// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile runs a barcode sync end to end: it loads Alma items and
// ArchivesSpace top containers (from the cache or the live systems), sets
// aside containers that already carry a barcode, matches the rest, and
// writes the copied barcodes back.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/internal/alma"
	"github.com/pdiddy/barcode-sync/internal/cache"
	"github.com/pdiddy/barcode-sync/internal/match"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

// ItemSource lists Alma items for a holdings record.
type ItemSource interface {
	Items(ctx context.Context, bibID, holdingsID string) ([]types.Record, error)
}

// RefSource lists the top container URIs of a resource.
type RefSource interface {
	ContainerRefs(ctx context.Context, resourceID int) ([]string, error)
}

// ContainerStore reads and writes ArchivesSpace top containers.
type ContainerStore interface {
	RefSource
	Container(ctx context.Context, uri string) (types.Record, error)
	PublishedContainers(ctx context.Context, refs []string, w io.Writer) ([]types.Record, error)
	Update(ctx context.Context, rec types.Record) error
}

// Cache holds record snapshots between runs.
type Cache interface {
	Get(ctx context.Context, key string) ([]types.Record, bool, error)
	Put(ctx context.Context, key string, records []types.Record) error
	Delete(ctx context.Context, key string) (bool, error)
}

// Deps are the collaborators of a run. Cache and DBRefs may be nil.
type Deps struct {
	Items      ItemSource
	Containers ContainerStore
	DBRefs     RefSource
	Cache      Cache
	Logger     *zerolog.Logger
}

// Request describes one run.
type Request struct {
	BibID      string
	HoldingsID string
	ResourceID int
	Profile    match.Profile

	// UseDB reads container refs from DBRefs instead of the API.
	UseDB bool
	// DryRun matches and reports without writing to ArchivesSpace.
	DryRun bool
	// Refresh ignores cached snapshots and refetches both sides.
	Refresh bool
}

// ErrNoDatabase reports UseDB without a database connection.
var ErrNoDatabase = errors.New("reconcile: database refs requested but no database configured")

// Result is the outcome of a run.
type Result struct {
	Report      *match.Report
	Layout      match.Layout
	SourceTotal int
	TargetTotal int
	WriteBack   WriteBackResult
}

// Run executes req. Progress lines go to w; structured events go to the
// logger. The returned error is non-nil only when the run could not
// complete; individual write-back failures are counted in Result.WriteBack.
func Run(ctx context.Context, deps Deps, req Request, w io.Writer) (*Result, error) {
	log := orNop(deps.Logger)
	if req.Profile == nil {
		return nil, fmt.Errorf("reconcile: no profile selected")
	}
	layout := match.LayoutOf(req.Profile)

	log.Info().Int("resource_id", req.ResourceID).Msgf("Getting ASpace top containers for resource %d", req.ResourceID)
	containers, err := loadContainers(ctx, deps, req, w)
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", len(containers)).Msgf("Found %d top containers in ASpace", len(containers))

	items, err := loadItems(ctx, deps, req, w)
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", len(items)).Msgf("Found %d items in Alma", len(items))

	sources := items
	if layout.SourceEnvelope == "" {
		sources = alma.ItemData(items)
	}

	uncoded, precoded := SplitPrecoded(containers, layout.TargetCode)
	rep := match.Run(sources, uncoded, req.Profile, match.Options{Logger: log})
	rep.Precoded = precoded
	if err := rep.Verify(len(sources), len(containers)); err != nil {
		return nil, err
	}

	res := &Result{Report: rep, Layout: layout, SourceTotal: len(sources), TargetTotal: len(containers)}

	if req.DryRun {
		log.Info().Int("count", len(rep.Matched)).Msg("Dry run: no changes made to ASpace top containers")
		fmt.Fprintf(w, "dry run: %d top containers would be updated\n", len(rep.Matched))
	} else {
		res.WriteBack = WriteBack(ctx, deps.Containers, rep.MatchedTargets(), layout, log, w)
		log.Info().Int("count", res.WriteBack.Updated).
			Msgf("Updated barcodes for %d top containers", res.WriteBack.Updated)
		if deps.Cache != nil && res.WriteBack.Updated > 0 {
			if _, err := deps.Cache.Delete(ctx, cache.ASpaceKey(req.ResourceID)); err != nil {
				log.Warn().Err(err).Msg("Could not invalidate cached containers")
			}
		}
	}

	logSummary(log, res)
	return res, nil
}

func loadItems(ctx context.Context, deps Deps, req Request, w io.Writer) ([]types.Record, error) {
	key := cache.AlmaKey(req.HoldingsID)
	if items, ok, err := cached(ctx, deps, req, key); err != nil || ok {
		if ok {
			fmt.Fprintf(w, "using cached Alma items (%d)\n", len(items))
		}
		return items, err
	}

	fmt.Fprintf(w, "fetching Alma items for holdings %s\n", req.HoldingsID)
	items, err := deps.Items.Items(ctx, req.BibID, req.HoldingsID)
	if err != nil {
		return nil, fmt.Errorf("fetching Alma items: %w", err)
	}
	return items, store(ctx, deps, key, items)
}

func loadContainers(ctx context.Context, deps Deps, req Request, w io.Writer) ([]types.Record, error) {
	key := cache.ASpaceKey(req.ResourceID)
	if containers, ok, err := cached(ctx, deps, req, key); err != nil || ok {
		if ok {
			fmt.Fprintf(w, "using cached top containers (%d)\n", len(containers))
		}
		return containers, err
	}

	var refs RefSource = deps.Containers
	if req.UseDB {
		if deps.DBRefs == nil {
			return nil, ErrNoDatabase
		}
		refs = deps.DBRefs
	}
	uris, err := refs.ContainerRefs(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("listing top containers: %w", err)
	}
	fmt.Fprintf(w, "fetching %d top containers for resource %d\n", len(uris), req.ResourceID)

	containers, err := deps.Containers.PublishedContainers(ctx, uris, w)
	if err != nil {
		return nil, err
	}
	return containers, store(ctx, deps, key, containers)
}

func cached(ctx context.Context, deps Deps, req Request, key string) ([]types.Record, bool, error) {
	if deps.Cache == nil || req.Refresh {
		return nil, false, nil
	}
	records, ok, err := deps.Cache.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("reading cache %s: %w", key, err)
	}
	return records, ok, nil
}

func store(ctx context.Context, deps Deps, key string, records []types.Record) error {
	if deps.Cache == nil {
		return nil
	}
	if err := deps.Cache.Put(ctx, key, records); err != nil {
		return fmt.Errorf("writing cache %s: %w", key, err)
	}
	return nil
}

// SplitPrecoded separates containers that already have a value in codeField.
// Both slices keep input order.
func SplitPrecoded(containers []types.Record, codeField string) (uncoded, precoded []types.Record) {
	for _, c := range containers {
		if c.Has(codeField) {
			precoded = append(precoded, c)
		} else {
			uncoded = append(uncoded, c)
		}
	}
	return uncoded, precoded
}

func logSummary(log *zerolog.Logger, res *Result) {
	c := res.Report.Counts()
	log.Info().Msgf("Total Alma items: %d", res.SourceTotal)
	log.Info().Msgf("Total ASpace top containers: %d", res.TargetTotal-c.Precoded)
	log.Info().Msgf("Matched ASpace top containers: %d", c.Matched)
	log.Info().Msgf("ASpace top containers with existing barcodes: %d", c.Precoded)
	log.Info().Msgf("Unmatched Alma items: %d", c.UnmatchedSource)
	log.Info().Msgf("Unmatched ASpace top containers: %d", c.UnmatchedTarget)
	log.Info().Msgf("Alma items with duplicate keys: %d", c.DuplicateSource)
	log.Info().Msgf("ASpace top containers with duplicate keys: %d", c.DuplicateTarget)
	if c.MalformedSource+c.MalformedTarget > 0 {
		log.Info().Msgf("Records with unparseable keys: %d Alma, %d ASpace", c.MalformedSource, c.MalformedTarget)
	}
}
