// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/barcode-sync/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached Alma items and ArchivesSpace containers",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached snapshots",
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove one cached snapshot or all of them",
	RunE:  runCacheClear,
}

func init() {
	cacheClearCmd.Flags().String("key", "", "snapshot key to remove (e.g. alma:2212345 or aspace:1234); all when empty")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*cache.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.Cache)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("cache is empty")
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Key,
			e.FetchedAt.Local().Format(time.DateTime),
			strconv.Itoa(e.Count),
			strconv.FormatBool(e.Expired(now, store.MaxAge())),
		})
	}
	fmt.Println(renderTable(
		[]string{"Key", "Fetched", "Records", "Expired"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	key, _ := cmd.Flags().GetString("key")

	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	if key != "" {
		removed, err := store.Delete(cmd.Context(), key)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no cached snapshot %q", key)
		}
		fmt.Printf("removed %s\n", key)
		return nil
	}

	n, err := store.Clear(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("removed %d snapshot(s)\n", n)
	return nil
}
