// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs to wire the core.
type Config struct {
	// DBPath is the local SQLite database file.
	DBPath string
	// FirestoreProject is the GCP project of the remote mirror. Empty
	// disables the mirror and runs local-only.
	FirestoreProject string
	// CollectionPrefix namespaces the mirror's collections.
	CollectionPrefix string
	// SyncDebounce is how long the coordinator coalesces sync requests.
	SyncDebounce time.Duration
	// CompletionXP is the flat XP award per finished workout.
	CompletionXP int64
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:           envOr("FITKEEPER_DB", "fitkeeper.db"),
		FirestoreProject: os.Getenv("FITKEEPER_FIRESTORE_PROJECT"),
		CollectionPrefix: envOr("FITKEEPER_COLLECTION_PREFIX", "fitkeeper"),
		SyncDebounce:     500 * time.Millisecond,
		CompletionXP:     25,
	}

	if v := os.Getenv("FITKEEPER_SYNC_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FITKEEPER_SYNC_DEBOUNCE: %w", err)
		}
		cfg.SyncDebounce = d
	}
	if v := os.Getenv("FITKEEPER_COMPLETION_XP"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("FITKEEPER_COMPLETION_XP: %w", err)
		}
		cfg.CompletionXP = n
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
