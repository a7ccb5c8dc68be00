// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the records-router CLI.
// See docs/ARCHITECTURE.md § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/records-router/internal/secrets"
	"github.com/pdiddy/records-router/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds provider credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the records-router CLI.
var rootCmd = &cobra.Command{
	Use:   "records-router",
	Short: "Search genealogical record providers and fuse the results",
	Long: `records-router queries multiple genealogical record providers in parallel,
normalizes their results into a canonical shape, merges duplicate records
across providers, and ranks the fused set by confidence and corroboration.

Provider calls are rate limited per provider and cached, so repeated
searches stay within provider terms of service. A provider failing or
timing out degrades that provider only; the remaining results still come
back with a per-provider outcome report.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./records-router.yaml or ~/.config/records-router/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("records-router")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "records-router"))
		}
	}

	viper.SetEnvPrefix("RECORDS_ROUTER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// routerConfig assembles a RouterConfig from the loaded config file,
// leaving unset fields to Defaults.
func routerConfig() types.RouterConfig {
	cfg := types.RouterConfig{
		HTTP: types.HTTPConfig{
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: viper.GetString("http.user_agent"),
		},
		Guard: types.GuardConfig{
			RequestsPerHour: viper.GetInt("guard.requests_per_hour"),
			Burst:           viper.GetInt("guard.burst"),
			MaxWait:         viper.GetDuration("guard.max_wait"),
			CacheTTL:        viper.GetDuration("guard.cache_ttl"),
			CacheSize:       viper.GetInt("guard.cache_size"),
			CacheDB:         viper.GetString("guard.cache_db"),
		},
		Dispatch: types.DispatchConfig{
			ProviderTimeout: viper.GetDuration("dispatch.provider_timeout"),
			MaxConcurrent:   viper.GetInt("dispatch.max_concurrent"),
		},
		Fusion: types.FusionConfig{
			SimilarityThreshold: viper.GetFloat64("fusion.similarity_threshold"),
			YearTolerance:       viper.GetInt("fusion.year_tolerance"),
			ProviderPriority:    viper.GetStringSlice("fusion.provider_priority"),
		},
	}
	return cfg.Defaults()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
