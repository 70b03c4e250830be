// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-organizer/internal/document"
)

var thumbnailsCmd = &cobra.Command{
	Use:   "thumbnails <file.pdf>",
	Short: "Render one PNG preview per page",
	Long: `Thumbnails renders every page of a PDF at the preview scale and writes
<name>-page-<n>.png files to --out-dir, one per page in page order. Page
numbers in file names are one-based.`,
	Args: cobra.ExactArgs(1),
	RunE: runThumbnails,
}

func init() {
	thumbnailsCmd.Flags().String("out-dir", "thumbnails", "directory for PNG files")
	addRenderFlags(thumbnailsCmd)

	rootCmd.AddCommand(thumbnailsCmd)
}

func runThumbnails(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := document.Open(filepath.Base(path), data)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cmd, false)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out-dir")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}

	stem := strings.TrimSuffix(doc.Name(), filepath.Ext(doc.Name()))
	for t, err := range renderer.Pages(cmd.Context(), doc) {
		if err != nil {
			return err
		}
		png, err := t.PNG()
		if err != nil {
			return fmt.Errorf("encoding page %d: %w", t.Index+1, err)
		}
		name := filepath.Join(outDir, thumbnailName(stem, t.Index))
		if err := os.WriteFile(name, png, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func thumbnailName(stem string, index int) string {
	return fmt.Sprintf("%s-page-%03d.png", stem, index+1)
}
