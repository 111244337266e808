// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files
// and from .env files. Each file in the directory represents one secret: the filename
// is the key name and the file contents (trimmed) are the value.
//
// Recognized keys: alma-sandbox-api-key, alma-production-api-key, aspace-password,
// aspace-db-password.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Key names looked up by Apply.
const (
	AlmaSandboxKey    = "alma-sandbox-api-key"
	AlmaProductionKey = "alma-production-api-key"
	ASpacePassword    = "aspace-password"
	DatabasePassword  = "aspace-db-password"
)

// envNames maps each key to the environment variable that can also supply it.
var envNames = map[string]string{
	AlmaSandboxKey:    "ALMA_SANDBOX_API_KEY",
	AlmaProductionKey: "ALMA_PRODUCTION_API_KEY",
	ASpacePassword:    "ASPACE_PASSWORD",
	DatabasePassword:  "ASPACE_DB_PASSWORD",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv loads the given .env files into the process environment. Files that
// do not exist are skipped; variables already set are left alone. It returns
// the files that were loaded.
func LoadEnv(files ...string) ([]string, error) {
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// Lookup returns the secret for key, preferring the environment variable
// over the file loaded from the secrets directory.
func Lookup(secrets map[string]string, key string) string {
	if env, ok := envNames[key]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return secrets[key]
}

// Apply fills credentials in cfg that are still empty. The Alma key is
// chosen by cfg.Alma.Environment.
func Apply(cfg *types.Config, secrets map[string]string) {
	if cfg.Alma.APIKey == "" {
		key := AlmaSandboxKey
		if cfg.Alma.Environment == types.AlmaProduction {
			key = AlmaProductionKey
		}
		cfg.Alma.APIKey = Lookup(secrets, key)
	}
	if cfg.ASpace.Password == "" {
		cfg.ASpace.Password = Lookup(secrets, ASpacePassword)
	}
	if cfg.Database.Password == "" {
		cfg.Database.Password = Lookup(secrets, DatabasePassword)
	}
}
