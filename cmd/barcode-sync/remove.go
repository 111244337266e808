// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/barcode-sync/internal/aspace"
	"github.com/pdiddy/barcode-sync/internal/reconcile"
	"github.com/pdiddy/barcode-sync/internal/report"
)

var removeCmd = &cobra.Command{
	Use:   "remove-barcodes",
	Short: "Undo a match run by clearing the barcodes it added",
	Long: `Remove-barcodes reads the run log of an earlier match run, collects every
top container it added a barcode to, and clears those barcodes again.`,
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().String("log-file", "", "run log of the match run to undo")
	removeCmd.Flags().Bool("dry-run", false, "list the containers without updating them")
	removeCmd.MarkFlagRequired("log-file")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	logFile, _ := cmd.Flags().GetString("log-file")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	uris, err := report.AddedBarcodeURIs(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(uris) == 0 {
		fmt.Printf("No added barcodes found in %s\n", logFile)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := startRun(cmd, cfg, "remove-barcodes")
	if err != nil {
		return err
	}
	defer r.Close()
	r.Log.Info().Str("log_file", logFile).Int("count", len(uris)).Bool("dry_run", dryRun).
		Msg("Removing barcodes added by earlier run")

	result := reconcile.RemoveBarcodes(cmd.Context(), aspace.New(cfg.ASpace, r.Log), uris, dryRun, r.Log, os.Stdout)

	if dryRun {
		for _, uri := range result.WouldClear {
			fmt.Println(uri)
		}
		fmt.Printf("%d barcode(s) would be removed\n", len(result.WouldClear))
		return nil
	}
	fmt.Printf("Removed %d, already clear %d, failed %d\n", result.Removed, result.NoBarcode, result.Failed)
	if result.HasFailures() {
		return fmt.Errorf("%d top container(s) could not be cleared", result.Failed)
	}
	return nil
}
