// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render drives the external rasterizer that turns a source PDF
// into an ordered, finite sequence of page images. Rasterization itself
// is a black box (pdftocairo); this package owns invocation, ordering,
// and the totality check that every source page yielded exactly one
// image.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/pdiddy/pagescribe/pkg/types"
)

// Renderer produces the page image sequence for a source document.
type Renderer interface {
	// Render rasterizes every page of the PDF at pdfPath, in page order.
	Render(ctx context.Context, pdfPath string) ([]types.PageImage, error)
}

// PageCount opens the PDF and returns its page count without rendering
// anything. Used to size the run up front and to verify the rasterizer's
// output is total.
func PageCount(pdfPath string) (int, error) {
	f, r, err := pdflib.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// readPageImages loads the page-*.png files the rasterizer wrote into
// dir, sorted by page number, and assigns 1-based indices in that order.
func readPageImages(dir string) ([]types.PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading render output %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "page-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		names = append(names, name)
	}
	// pdftocairo zero-pads page numbers, so lexical order is page order.
	sort.Strings(names)

	images := make([]types.PageImage, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading page image %s: %w", name, err)
		}
		images = append(images, types.PageImage{Index: i + 1, PNG: data})
	}
	return images, nil
}

// debugCopy writes each page image next to the source PDF as page_N.png.
func debugCopy(pdfPath string, images []types.PageImage) error {
	dir := filepath.Dir(pdfPath)
	for _, img := range images {
		name := filepath.Join(dir, fmt.Sprintf("page_%d.png", img.Index))
		if err := os.WriteFile(name, img.PNG, 0o644); err != nil {
			return fmt.Errorf("writing debug image %s: %w", name, err)
		}
	}
	return nil
}
