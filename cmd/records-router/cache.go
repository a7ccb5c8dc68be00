// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/records-router/internal/guard"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop expired entries from the cache database",
	Long: `Prune removes cached provider responses older than the configured TTL
from the cache database. Stale entries are already ignored on read; prune
reclaims the space they occupy.`,
	RunE: runCachePrune,
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	cfg := routerConfig()
	if cfg.Guard.CacheDB == "" {
		return fmt.Errorf("no cache database configured: set guard.cache_db in the config file")
	}

	store, err := guard.OpenSQLiteStore(cfg.Guard.CacheDB)
	if err != nil {
		return fmt.Errorf("opening cache db: %w", err)
	}
	defer store.Close()

	cutoff := time.Now().Add(-cfg.Guard.CacheTTL)
	n, err := store.Prune(cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d expired cache entries from %s\n", n, cfg.Guard.CacheDB)
	return nil
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
