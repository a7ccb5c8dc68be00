// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured record providers and their rate budgets",
	Long: `Providers lists every registered record provider with its credential
status and the configured per-provider rate budget. Use it to check which
providers a search can reach before spending requests.`,
	RunE: runProviders,
}

type providerInfo struct {
	ID              string `json:"id"`
	Credentialed    bool   `json:"credentialed"`
	RequestsPerHour int    `json:"requests_per_hour"`
	Burst           int    `json:"burst"`
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg := routerConfig()
	reg := buildRegistry(cfg.HTTP)

	infos := make([]providerInfo, 0, 2)
	for _, id := range reg.IDs() {
		infos = append(infos, providerInfo{
			ID:              id,
			Credentialed:    credentialed(id),
			RequestsPerHour: cfg.Guard.RequestsPerHour,
			Burst:           cfg.Guard.Burst,
		})
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	fmt.Fprintf(os.Stdout, "%-16s  %-12s  %-10s  %s\n", "Provider", "Credentials", "Req/hour", "Burst")
	for _, info := range infos {
		creds := "none"
		if info.Credentialed {
			creds = "loaded"
		}
		fmt.Fprintf(os.Stdout, "%-16s  %-12s  %-10d  %d\n", info.ID, creds, info.RequestsPerHour, info.Burst)
	}
	return nil
}

// credentialed reports whether the provider has what it needs to
// authenticate. The web provider never needs credentials.
func credentialed(id string) bool {
	switch id {
	case "familysearch":
		return secretDefault("familysearch-access-token", "") != ""
	default:
		return true
	}
}

func init() {
	providersCmd.Flags().Bool("json", false, "output provider info as JSON")

	rootCmd.AddCommand(providersCmd)
}
