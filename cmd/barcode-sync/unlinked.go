package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/barcode-sync/internal/aspace"
	"github.com/pdiddy/barcode-sync/internal/reconcile"
)

const defaultUnlinkedFile = "unlinked_top_containers.txt"

var unlinkedCmd = &cobra.Command{
	Use:   "unlinked",
	Short: "Find and delete top containers that belong to no collection",
}

var unlinkedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Write the URIs of unlinked top containers to a file",
	RunE:  runUnlinkedList,
}

var unlinkedDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the top containers listed in a file",
	Long: `Delete reads one top container URI per line and deletes each container
that is still unlinked. Containers that have since been linked to a
collection are skipped.`,
	RunE: runUnlinkedDelete,
}

func init() {
	unlinkedListCmd.Flags().String("output", defaultUnlinkedFile, "file to write URIs to")
	unlinkedListCmd.Flags().Int("page-size", 1000, "top containers per API page")

	unlinkedDeleteCmd.Flags().String("input", defaultUnlinkedFile, "file of URIs to delete")
	unlinkedDeleteCmd.Flags().Bool("dry-run", false, "check each container without deleting it")

	unlinkedCmd.AddCommand(unlinkedListCmd)
	unlinkedCmd.AddCommand(unlinkedDeleteCmd)
	rootCmd.AddCommand(unlinkedCmd)
}

func runUnlinkedList(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := startRun(cmd, cfg, "unlinked", "list")
	if err != nil {
		return err
	}
	defer r.Close()

	uris, err := reconcile.UnlinkedContainers(cmd.Context(), aspace.New(cfg.ASpace, r.Log), pageSize, r.Log)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, uri := range uris {
		b.WriteString(uri)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(output, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("%d unlinked top container(s) written to %s\n", len(uris), output)
	return nil
}

func runUnlinkedDelete(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	uris, err := readLines(input)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := startRun(cmd, cfg, "unlinked", "delete")
	if err != nil {
		return err
	}
	defer r.Close()

	result := reconcile.DeleteUnlinked(cmd.Context(), aspace.New(cfg.ASpace, r.Log), uris, dryRun, r.Log)
	verb := "Deleted"
	if dryRun {
		verb = "Would delete"
	}
	fmt.Printf("%s %d, skipped %d, failed %d\n", verb, result.Deleted, len(result.Skipped), result.Failed)
	if result.HasFailures() {
		return fmt.Errorf("%d top container(s) could not be deleted", result.Failed)
	}
	return nil
}

// readLines returns the non-blank lines of path, trimmed.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}
