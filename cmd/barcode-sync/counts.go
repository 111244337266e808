// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/barcode-sync/internal/aspacedb"
	"github.com/pdiddy/barcode-sync/internal/report"
)

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Add a top container count column to a CSV of resources",
	Long: `Counts reads a CSV with an "ArchivesSpace Rec ID" column, looks up how many
top containers each resource has in the ArchivesSpace database, and writes a
copy with a container_count column next to the input.`,
	RunE: runCounts,
}

func init() {
	countsCmd.Flags().String("file", "", "input CSV")
	countsCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(countsCmd)
}

func runCounts(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("file")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := startRun(cmd, cfg, "counts")
	if err != nil {
		return err
	}
	defer r.Close()

	db, err := aspacedb.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}
	defer in.Close()

	outPath := report.CountsFilename(input)
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}

	summary, err := report.AppendContainerCounts(cmd.Context(), in, out, db.ContainerCount, r.Log)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", outPath, cerr)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%d of %d rows were updated with counts.\n", summary.Counted, summary.Rows)
	fmt.Printf("wrote %s\n", outPath)
	return nil
}
