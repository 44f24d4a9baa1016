// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/compound-fetch/pkg/types"
)

// Export is the document written by ExportYAML.
type Export struct {
	Runs      []types.Run      `json:"runs" yaml:"runs"`
	Compounds []ExportCompound `json:"compounds" yaml:"compounds"`
}

// ExportCompound is one compound line in an export.
type ExportCompound struct {
	CID     string `json:"cid" yaml:"cid"`
	Formula string `json:"formula" yaml:"formula"`
	RunID   string `json:"run_id" yaml:"run_id"`
}

const exportLimit = 10000000

// ExportYAML writes every run and compound to path, or to export.yaml in
// the index directory when path is empty. It returns the path written.
func (s *Store) ExportYAML(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = filepath.Join(s.dir, exportFile)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		return "", err
	}
	compounds, err := s.List(ctx, exportLimit)
	if err != nil {
		return "", err
	}

	doc := Export{Runs: runs, Compounds: make([]ExportCompound, len(compounds))}
	for i, c := range compounds {
		doc.Compounds[i] = ExportCompound{CID: c.CID, Formula: c.Formula, RunID: c.RunID}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}
