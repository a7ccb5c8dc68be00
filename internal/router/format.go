// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/records-router/pkg/types"
)

// FormatTable writes the report as a human-readable table to w.
func FormatTable(report *Report, w io.Writer) {
	if len(report.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-30s  %-10s  %-30s  %-6s  %-4s  %s\n",
			"Rank", "Name", "Birth", "Place", "Score", "Srcs", "Record")
		fmt.Fprintln(w, strings.Repeat("-", 110))

		for i, f := range report.Records {
			fmt.Fprintf(w, "%-4d  %-30s  %-10s  %-30s  %-6.2f  %-4d  %s\n",
				i+1,
				truncate(f.Name, 30),
				truncate(f.BirthDate, 10),
				truncate(f.EventPlace, 30),
				f.RankScore,
				f.SourceCount,
				f.RecordID)
		}

		fmt.Fprintf(w, "\n%d records", len(report.Records))
		if report.DupsRemoved > 0 {
			fmt.Fprintf(w, " (%d duplicates merged)", report.DupsRemoved)
		}
		fmt.Fprintln(w)
	}

	for _, o := range report.Outcomes {
		line := fmt.Sprintf("  %-14s %-13s %4d records  %5dms", o.ProviderID, o.Status, o.ResultCount, o.LatencyMs)
		if o.Cached {
			line += "  (cached)"
		}
		if o.ErrorDetail != "" {
			line += "  " + o.ErrorDetail
		}
		fmt.Fprintln(w, line)
	}
}

// FormatJSON writes the caller-facing report shape as indented JSON.
func FormatJSON(report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Records          []RecordObject          `json:"records"`
		ProviderOutcomes []types.ProviderOutcome `json:"provider_outcomes"`
	}{
		Records:          report.PlainRecords(),
		ProviderOutcomes: report.Outcomes,
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
