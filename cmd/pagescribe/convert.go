package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagescribe/internal/assemble"
	"github.com/pdiddy/pagescribe/internal/oracle"
	"github.com/pdiddy/pagescribe/internal/pipeline"
	"github.com/pdiddy/pagescribe/internal/render"
	"github.com/pdiddy/pagescribe/internal/runlog"
	"github.com/pdiddy/pagescribe/internal/secrets"
	"github.com/pdiddy/pagescribe/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <pdf>",
	Short: "Convert a PDF to raw per-page Markdown",
	Long: `Convert renders each page of the PDF to an image, transcribes it with a
vision model, and writes the pages in order to a single Markdown file.

A page that produces malformed output or hits transport errors is retried
up to its tier budget, then escalated to the fallback model. A page that
exhausts every tier is written as a visible placeholder so the document
never silently loses content. The raw output is meant to be piped through
"pagescribe normalize" afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pdfPath := args[0]
		if _, err := os.Stat(pdfPath); err != nil {
			return fmt.Errorf("reading %s: %w", pdfPath, err)
		}

		cfg, err := convertConfig(cmd)
		if err != nil {
			return err
		}
		outPath, _ := cmd.Flags().GetString("output")
		if outPath == "" {
			outPath = strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".md"
			if cfg.Convert.OutputDir != "" {
				if err := os.MkdirAll(cfg.Convert.OutputDir, 0o755); err != nil {
					return fmt.Errorf("creating output directory: %w", err)
				}
				outPath = filepath.Join(cfg.Convert.OutputDir, filepath.Base(outPath))
			}
		}

		renderer, err := render.NewPdftocairo(cfg.Render)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Rendering %s at %d dpi\n", pdfPath, cfg.Render.DPI)
		images, err := renderer.Render(cmd.Context(), pdfPath)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", pdfPath, err)
		}
		fmt.Fprintf(os.Stderr, "Converting %d pages (concurrency %d)\n",
			len(images), cfg.Convert.Concurrency)

		store, err := runlog.Open(cfg.Report)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err := store.BeginRun(pdfPath, len(images))
		if err != nil {
			return err
		}

		backend := oracle.NewClaudeBackend(cfg.Convert.APIKey, cfg.Convert.HTTPConfig)
		converter := pipeline.NewConverter(backend, cfg.Convert, pipeline.WriterObserver{W: os.Stderr})
		asm := assemble.New()

		err = pipeline.ConvertAll(cmd.Context(), images, cfg.Convert.Concurrency,
			converter.Convert, func(r types.PageResult) error {
				if err := store.RecordPage(runID, r); err != nil {
					return err
				}
				return asm.Append(r)
			})
		if err != nil {
			return err
		}
		if err := store.FinishRun(runID); err != nil {
			return err
		}

		doc := asm.Finalize()
		if err := writeFileAtomic(outPath, doc.Render()); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Wrote %s (%d pages, run %d)\n", outPath, len(images), runID)
		if failed := doc.Failed(); len(failed) > 0 {
			fmt.Fprintf(os.Stderr, "WARNING: %d pages failed every tier: %v\n", len(failed), failed)
			fmt.Fprintf(os.Stderr, "Search the output for %q to locate them.\n", types.FailedPageSentinel)
		}
		return nil
	},
}

// convertConfig assembles the pipeline configuration for a convert run:
// config-file values first, then flag overrides, then defaults.
func convertConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if dpi, _ := cmd.Flags().GetInt("dpi"); dpi != 0 {
		cfg.Render.DPI = dpi
	}
	if cfg.Render.DPI == 0 {
		cfg.Render.DPI = types.DefaultDPI
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Render.Debug = true
	}

	model, _ := cmd.Flags().GetString("model")
	fallback, _ := cmd.Flags().GetString("fallback-model")
	attempts, _ := cmd.Flags().GetInt("max-attempts")
	if model != "" || fallback != "" || len(cfg.Convert.Tiers) == 0 {
		if model == "" {
			model = types.DefaultModel
		}
		if fallback == "" {
			fallback = types.DefaultFallbackModel
		}
		if attempts == 0 {
			attempts = types.DefaultMaxAttempts
		}
		cfg.Convert.Tiers = []types.Tier{
			{Model: model, MaxAttempts: attempts},
			{Model: fallback, MaxAttempts: attempts},
		}
	}
	for _, t := range cfg.Convert.Tiers {
		if !types.IsValidModel(t.Model) {
			return cfg, fmt.Errorf("unknown model %q (valid: %s)",
				t.Model, strings.Join(types.ValidModels, ", "))
		}
	}

	if c, _ := cmd.Flags().GetInt("concurrency"); c != 0 {
		cfg.Convert.Concurrency = c
	}
	if cfg.Convert.Concurrency == 0 {
		cfg.Convert.Concurrency = types.DefaultConcurrency
	}
	if cfg.Convert.Timeout == 0 {
		cfg.Convert.Timeout = 120 * time.Second
	}

	cfg.Convert.APIKey = secretDefault(secrets.AnthropicAPIKey, cfg.Convert.APIKey)
	if cfg.Convert.APIKey == "" {
		return cfg, fmt.Errorf("no API key: put it in .secrets/%s or set convert.api_key", secrets.AnthropicAPIKey)
	}
	return cfg, nil
}

// writeFileAtomic writes content to path via a temp file and rename, so a
// crash mid-write never leaves a truncated document behind.
func writeFileAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func init() {
	convertCmd.Flags().String("model", "", "primary transcription model (default "+types.DefaultModel+")")
	convertCmd.Flags().String("fallback-model", "", "fallback model tier (default "+types.DefaultFallbackModel+")")
	convertCmd.Flags().Int("max-attempts", 0, "attempt budget per tier (default 3)")
	convertCmd.Flags().Int("concurrency", 0, "pages converted in parallel (default 4)")
	convertCmd.Flags().Int("dpi", 0, "rasterization resolution (default 120)")
	convertCmd.Flags().Bool("debug", false, "keep rendered page images next to the PDF")
	convertCmd.Flags().StringP("output", "o", "", "output path (default <pdf>.md)")

	rootCmd.AddCommand(convertCmd)
}
