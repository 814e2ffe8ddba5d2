// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ReportFile is the report name under the output root.
const ReportFile = "report.yaml"

// YAMLReport writes the report as YAML to Path.
type YAMLReport struct {
	Path string
}

// NewYAMLReport returns a persister writing root/report.yaml.
func NewYAMLReport(root string) *YAMLReport {
	return &YAMLReport{Path: filepath.Join(root, ReportFile)}
}

// Persist writes r through a temporary file and rename.
func (y *YAMLReport) Persist(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(y.Path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	tmp := y.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp, y.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by YAMLReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}
