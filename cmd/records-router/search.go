// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/records-router/internal/guard"
	"github.com/pdiddy/records-router/internal/location"
	"github.com/pdiddy/records-router/internal/provider"
	"github.com/pdiddy/records-router/internal/router"
	"github.com/pdiddy/records-router/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search record providers and fuse the results",
	Long: `Search queries the selected genealogical record providers concurrently
for records matching a person. Results from all providers are normalized,
duplicates are merged across providers, and the fused set is ranked by
confidence boosted by multi-provider corroboration.

At least one of --given-name and --surname is required. A provider that
fails or times out is reported in the outcome section without blocking
the others.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := routerConfig()

	g, err := buildGuard(cfg.Guard)
	if err != nil {
		return err
	}
	defer g.Close()

	r := router.New(buildRegistry(cfg.HTTP), g, location.NewResolver(), cfg, os.Stderr)

	report, err := r.SearchRecords(context.Background(), q)
	if err != nil {
		// The report still carries per-provider outcome detail.
		if report != nil {
			router.FormatTable(report, os.Stderr)
		}
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		if err := router.FormatJSON(report, os.Stdout); err != nil {
			return err
		}
	} else {
		router.FormatTable(report, os.Stdout)
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := router.WriteReportFile(savePath, q, report); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved report to %s\n", savePath)
	}
	return nil
}

// queryFromFlags assembles and validates the search query.
func queryFromFlags(cmd *cobra.Command) (types.Query, error) {
	given, _ := cmd.Flags().GetString("given-name")
	surname, _ := cmd.Flags().GetString("surname")
	eventType, _ := cmd.Flags().GetString("event-type")
	year, _ := cmd.Flags().GetInt("year")
	yearTo, _ := cmd.Flags().GetInt("year-to")
	place, _ := cmd.Flags().GetString("place")
	providers, _ := cmd.Flags().GetStringSlice("providers")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	q := types.Query{
		GivenName:  given,
		Surname:    surname,
		EventType:  eventType,
		Year:       year,
		YearTo:     yearTo,
		Place:      place,
		Providers:  providers,
		MaxResults: maxResults,
	}
	if q.IsEmpty() {
		return types.Query{}, fmt.Errorf("a search needs at least a name, --place, or --year")
	}
	if q.YearTo != 0 && q.YearTo < q.Year {
		return types.Query{}, fmt.Errorf("--year-to %d is before --year %d", q.YearTo, q.Year)
	}
	for _, id := range q.Providers {
		if strings.TrimSpace(id) == "" {
			return types.Query{}, fmt.Errorf("empty provider name in --providers")
		}
	}
	return q, nil
}

// buildGuard constructs the rate/cache guard, with SQLite persistence
// when the config names a cache database.
func buildGuard(cfg types.GuardConfig) (*guard.Guard, error) {
	var store guard.Store
	if cfg.CacheDB != "" {
		s, err := guard.OpenSQLiteStore(cfg.CacheDB)
		if err != nil {
			return nil, fmt.Errorf("opening cache db: %w", err)
		}
		store = s
	}
	return guard.New(cfg, store), nil
}

// buildRegistry registers every known provider adapter. Unselected
// providers cost nothing; the router only calls what the query names.
func buildRegistry(httpCfg types.HTTPConfig) *provider.Registry {
	client := &http.Client{Timeout: httpCfg.Timeout}

	reg := provider.NewRegistry()
	reg.Register(&provider.FamilySearch{
		Client:      client,
		AccessToken: secretDefault("familysearch-access-token", ""),
		UserAgent:   httpCfg.UserAgent,
	})
	reg.Register(&provider.WebSearch{
		Client:    client,
		UserAgent: secretDefault("websearch-user-agent", httpCfg.UserAgent),
	})
	return reg
}

func init() {
	searchCmd.Flags().String("given-name", "", "given name of the person to search for")
	searchCmd.Flags().String("surname", "", "surname of the person to search for")
	searchCmd.Flags().String("event-type", "", "life event to match: birth, death, marriage, residence, census")
	searchCmd.Flags().Int("year", 0, "event year (start of range with --year-to)")
	searchCmd.Flags().Int("year-to", 0, "event year range end")
	searchCmd.Flags().String("place", "", "event place, historical names accepted (e.g. \"Beverwyck\")")
	searchCmd.Flags().StringSlice("providers", []string{"familysearch", "websearch"}, "providers to query, in outcome order")
	searchCmd.Flags().Int("max-results", 20, "maximum fused records to return")
	searchCmd.Flags().Bool("json", false, "output records and outcomes as JSON")
	searchCmd.Flags().String("save", "", "write the full report to a YAML file")

	rootCmd.AddCommand(searchCmd)
}
