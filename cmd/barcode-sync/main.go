// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the barcode-sync CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/barcode-sync/internal/secrets"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the barcode-sync CLI.
var rootCmd = &cobra.Command{
	Use:   "barcode-sync",
	Short: "Copy Alma item barcodes onto ArchivesSpace top containers",
	Long: `barcode-sync reconciles the physical items of an Alma holdings record with
the top containers of an ArchivesSpace resource. Items and containers are
paired by a key parsed from their box descriptions; each matched container
receives the item's barcode.

Matching rules are chosen per collection with --profile. Every run writes a
JSON-lines log and an unhandled-data report listing what was not matched.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := secrets.LoadEnv(".env", ".env.local")
		if err != nil {
			return err
		}
		if len(loaded) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded env files: %v\n", loaded)
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./barcode-sync.yaml or ~/.config/barcode-sync/config.yaml)")
	rootCmd.PersistentFlags().Bool("print-output", false, "echo log events to stderr as well as the run log file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default info)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// configKeys are bound to BARCODE_SYNC_* environment variables, with dots
// replaced by underscores (BARCODE_SYNC_ALMA_ENVIRONMENT).
var configKeys = []string{
	"profile",
	"alma.base_url", "alma.environment", "alma.api_key", "alma.page_size",
	"alma.timeout", "alma.requests_per_second", "alma.max_retries",
	"aspace.base_url", "aspace.repository", "aspace.username", "aspace.password",
	"aspace.timeout", "aspace.requests_per_second", "aspace.max_retries",
	"database.host", "database.port", "database.name", "database.user", "database.password",
	"cache.dir", "cache.disabled", "cache.max_age",
	"report.dir", "report.format",
	"log.dir", "log.level", "log.format",
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("barcode-sync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "barcode-sync"))
		}
	}

	viper.SetEnvPrefix("BARCODE_SYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range configKeys {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file, environment, and bound flags over the
// defaults, then fills missing credentials from secrets.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
