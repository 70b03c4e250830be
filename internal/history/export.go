// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf-organizer/internal/oplog"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

const exportLimit = 100000

// ExportEntry is one submission in an export. Operations is decoded so the
// export reads as a YAML list rather than an embedded JSON string.
type ExportEntry struct {
	ID          string            `json:"id" yaml:"id"`
	SessionID   string            `json:"session_id" yaml:"session_id"`
	Filename    string            `json:"filename" yaml:"filename"`
	PageCount   int               `json:"page_count" yaml:"page_count"`
	Outcome     string            `json:"outcome" yaml:"outcome"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
	InputBytes  int               `json:"input_bytes" yaml:"input_bytes"`
	OutputBytes int               `json:"output_bytes" yaml:"output_bytes"`
	StartedAt   string            `json:"started_at" yaml:"started_at"`
	DurationMS  int64             `json:"duration_ms" yaml:"duration_ms"`
	Operations  []oplog.Operation `json:"operations" yaml:"operations"`
}

// ExportYAML writes every submission to dir/export.yaml and returns the
// path written.
func (s *Store) ExportYAML(ctx context.Context, opts ListOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, "export.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// WriteJSON writes the selected submissions to w as indented JSON.
func (s *Store) WriteJSON(ctx context.Context, w io.Writer, opts ListOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

func (s *Store) exportEntries(ctx context.Context, opts ListOptions) ([]ExportEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = exportLimit
	}
	subs, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(subs))
	for i, sub := range subs {
		entries[i] = toEntry(sub)
	}
	return entries, nil
}

func toEntry(sub types.Submission) ExportEntry {
	e := ExportEntry{
		ID:          sub.ID,
		SessionID:   sub.SessionID,
		Filename:    sub.Filename,
		PageCount:   sub.PageCount,
		Outcome:     string(sub.Outcome),
		Error:       sub.Error,
		InputBytes:  sub.InputBytes,
		OutputBytes: sub.OutputBytes,
		StartedAt:   sub.StartedAt.UTC().Format(timeLayout),
		DurationMS:  sub.Duration().Milliseconds(),
	}
	// Rows written by this package always hold a JSON array; anything else
	// is exported with an empty list.
	if err := json.Unmarshal([]byte(sub.Operations), &e.Operations); err != nil {
		e.Operations = nil
	}
	if e.Operations == nil {
		e.Operations = []oplog.Operation{}
	}
	return e
}
