// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/barcode-sync/internal/alma"
	"github.com/pdiddy/barcode-sync/internal/aspace"
	"github.com/pdiddy/barcode-sync/internal/aspacedb"
	"github.com/pdiddy/barcode-sync/internal/cache"
	"github.com/pdiddy/barcode-sync/internal/match"
	"github.com/pdiddy/barcode-sync/internal/reconcile"
	"github.com/pdiddy/barcode-sync/internal/report"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match Alma items to ArchivesSpace top containers and copy barcodes",
	Long: `Match fetches the items of an Alma holdings record and the published top
containers of an ArchivesSpace resource, pairs them by the key the selected
profile parses from their descriptions, and writes each matched item's barcode
onto its top container.

Containers that already have a barcode are left alone. Records with duplicate
or unparseable keys are never written; they are listed in the unhandled-data
report along with everything left unmatched. Use --dry-run to produce the
report without writing.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().String("profile", "", "matching profile (see `barcode-sync profiles`)")
	matchCmd.Flags().String("bib-id", "", "Alma bib MMS ID")
	matchCmd.Flags().String("holdings-id", "", "Alma holdings ID")
	matchCmd.Flags().Int("resource-id", 0, "ArchivesSpace resource ID")
	matchCmd.Flags().String("alma-env", "", "Alma environment: sandbox or production")
	matchCmd.Flags().Bool("use-db", false, "read container refs from the ArchivesSpace database instead of the API")
	matchCmd.Flags().Bool("dry-run", false, "match and report without updating ArchivesSpace")
	matchCmd.Flags().Bool("refresh", false, "ignore cached records and refetch both sides")
	matchCmd.Flags().String("format", "", "report format: json, yaml, or csv")

	viper.BindPFlag("profile", matchCmd.Flags().Lookup("profile"))
	viper.BindPFlag("alma.environment", matchCmd.Flags().Lookup("alma-env"))
	viper.BindPFlag("report.format", matchCmd.Flags().Lookup("format"))

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	bibID, _ := cmd.Flags().GetString("bib-id")
	holdingsID, _ := cmd.Flags().GetString("holdings-id")
	resourceID, _ := cmd.Flags().GetInt("resource-id")
	useDB, _ := cmd.Flags().GetBool("use-db")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	refresh, _ := cmd.Flags().GetBool("refresh")
	if bibID == "" || holdingsID == "" || resourceID <= 0 {
		return fmt.Errorf("--bib-id, --holdings-id and --resource-id are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	profile, err := match.Lookup(cfg.Profile)
	if err != nil {
		return err
	}

	r, err := startRun(cmd, cfg, "match", profile.Name(), strconv.Itoa(resourceID))
	if err != nil {
		return err
	}
	defer r.Close()
	r.Log.Info().Str("profile", profile.Name()).Str("bib_id", bibID).Str("holdings_id", holdingsID).
		Int("resource_id", resourceID).Bool("dry_run", dryRun).Msg("Starting barcode run")

	r.Log.Info().Msgf("Using Alma API key for %s environment", cfg.Alma.Environment)
	almaClient, err := alma.New(cfg.Alma, r.Log)
	if err != nil {
		return err
	}
	deps := reconcile.Deps{
		Items:      almaClient,
		Containers: aspace.New(cfg.ASpace, r.Log),
		Logger:     r.Log,
	}

	if useDB {
		db, err := aspacedb.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		deps.DBRefs = db
	}
	if !cfg.Cache.Disabled {
		store, err := cache.Open(cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Cache = store
	}

	res, err := reconcile.Run(cmd.Context(), deps, reconcile.Request{
		BibID:      bibID,
		HoldingsID: holdingsID,
		ResourceID: resourceID,
		Profile:    profile,
		UseDB:      useDB,
		DryRun:     dryRun,
		Refresh:    refresh,
	}, os.Stdout)
	if err != nil {
		r.Log.Error().Err(err).Msg("Run failed")
		return err
	}

	doc := report.Build(report.Meta{
		RunID:       r.ID,
		GeneratedAt: r.Started.UTC(),
		BibID:       bibID,
		HoldingsID:  holdingsID,
		ResourceID:  resourceID,
		DryRun:      dryRun,
	}, res.Report, res.Layout)
	path, err := report.Write(cfg.Report.Dir, r.Base, cfg.Report.Format, doc)
	if err != nil {
		return err
	}
	r.Log.Info().Str("path", path).
		Msgf("Unhandled data (items and top containers remaining unmatched or with duplicate keys) written to %s", path)

	fmt.Println(summaryTable(res))
	fmt.Printf("report: %s\n", path)

	if res.WriteBack.HasFailures() {
		return fmt.Errorf("%d top container(s) failed to update", res.WriteBack.Failed)
	}
	return nil
}

func summaryTable(res *reconcile.Result) string {
	c := res.Report.Counts()
	rows := [][]string{
		{"Alma items", strconv.Itoa(res.SourceTotal)},
		{"ASpace top containers", strconv.Itoa(res.TargetTotal)},
		{"Matched", strconv.Itoa(c.Matched)},
		{"Updated", strconv.Itoa(res.WriteBack.Updated)},
		{"Failed updates", strconv.Itoa(res.WriteBack.Failed)},
		{"Existing barcodes", strconv.Itoa(c.Precoded)},
		{"Unmatched items", strconv.Itoa(c.UnmatchedSource)},
		{"Unmatched top containers", strconv.Itoa(c.UnmatchedTarget)},
		{"Items with duplicate keys", strconv.Itoa(c.DuplicateSource)},
		{"Top containers with duplicate keys", strconv.Itoa(c.DuplicateTarget)},
		{"Unparseable items", strconv.Itoa(c.MalformedSource)},
		{"Unparseable top containers", strconv.Itoa(c.MalformedTarget)},
	}
	return renderTable([]string{"Bucket", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
