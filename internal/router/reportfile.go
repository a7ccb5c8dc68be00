// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/records-router/pkg/types"
)

// ReportFile is the on-disk representation of a search and its results.
// A researcher can save a search to a file and reload it later without
// re-querying providers.
type ReportFile struct {
	Query   types.Query   `yaml:"query"`
	Report  Report        `yaml:"report"`
	Summary ReportSummary `yaml:"summary"`
}

// ReportSummary stores result statistics and a timestamp.
type ReportSummary struct {
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	ProvidersOK       int       `yaml:"providers_ok"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// WriteReportFile saves the query and its report to a YAML file.
func WriteReportFile(path string, q types.Query, report *Report) error {
	ok := 0
	for _, o := range report.Outcomes {
		if o.OK() {
			ok++
		}
	}

	rf := ReportFile{
		Query:  q,
		Report: *report,
		Summary: ReportSummary{
			Total:             len(report.Records),
			DuplicatesRemoved: report.DupsRemoved,
			ProvidersOK:       ok,
			Timestamp:         time.Now(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling report file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReportFile loads a previously saved report from disk.
func ReadReportFile(path string) (*ReportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report file: %w", err)
	}
	var rf ReportFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing report file: %w", err)
	}
	return &rf, nil
}
