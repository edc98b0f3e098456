// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pdiddy/pagescribe/pkg/types"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", name, err, out)
	}
	return nil
}

// Pdftocairo rasterizes PDFs by shelling out to poppler's pdftocairo.
type Pdftocairo struct {
	cfg  types.RenderConfig
	exec executor
}

// NewPdftocairo builds a renderer from cfg. It verifies the pdftocairo
// binary is reachable before returning.
func NewPdftocairo(cfg types.RenderConfig) (*Pdftocairo, error) {
	r := &Pdftocairo{cfg: cfg, exec: osExecutor{}}
	if _, err := r.exec.LookPath(r.binary()); err != nil {
		return nil, fmt.Errorf("pdftocairo not found (set poppler_path or install poppler): %w", err)
	}
	return r, nil
}

// binary returns the pdftocairo executable path for the configured
// poppler directory, with the .exe suffix on Windows.
func (r *Pdftocairo) binary() string {
	name := "pdftocairo"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if r.cfg.PopplerPath == "" {
		return name
	}
	return filepath.Join(r.cfg.PopplerPath, name)
}

// Render rasterizes every page of the PDF into a temp directory as PNG
// and returns the images in page order. The image count must equal the
// PDF's page count; a mismatch means the rasterizer dropped or invented
// pages and the run cannot trust its page indices.
// countPages is swapped in tests to avoid needing real PDF fixtures.
var countPages = PageCount

func (r *Pdftocairo) Render(ctx context.Context, pdfPath string) ([]types.PageImage, error) {
	expected, err := countPages(pdfPath)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "pagescribe-render-*")
	if err != nil {
		return nil, fmt.Errorf("creating render directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dpi := r.cfg.DPI
	if dpi <= 0 {
		dpi = types.DefaultDPI
	}
	extra := r.cfg.ExtraArgs
	if extra == nil {
		extra = []string{"-antialias", "subpixel"}
	}

	args := append([]string{"-png", "-r", fmt.Sprint(dpi)}, extra...)
	args = append(args, pdfPath, filepath.Join(tmpDir, "page"))

	if err := r.exec.Run(ctx, r.binary(), args...); err != nil {
		return nil, fmt.Errorf("rasterizing %s: %w", pdfPath, err)
	}

	images, err := readPageImages(tmpDir)
	if err != nil {
		return nil, err
	}
	if len(images) != expected {
		return nil, fmt.Errorf("rasterizer produced %d images for %d-page PDF %s", len(images), expected, pdfPath)
	}

	if r.cfg.Debug {
		if err := debugCopy(pdfPath, images); err != nil {
			return nil, err
		}
	}

	return images, nil
}
