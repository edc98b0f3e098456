package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagescribe/internal/normalize"
	"github.com/pdiddy/pagescribe/pkg/types"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <markdown>",
	Short: "Normalize raw converted Markdown into a unified document",
	Long: `Normalize cleans the raw per-page output of convert: page headings become
HTML comment markers, tables split across a single page break are merged,
headings split across pages are unified, and duplicate headings collapse.

A page that could not be salvaged at all is left untouched so the
document always carries the canonical output; normalize only reduces
noise around it. Failed-page placeholders are preserved verbatim.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inPath := args[0]
		raw, err := os.ReadFile(inPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", inPath, err)
		}

		var cfg types.PipelineConfig
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		if relevel, _ := cmd.Flags().GetBool("relevel-headings"); relevel {
			cfg.Normalize.RelevelHeadings = true
		}

		cleaned, summary := normalize.Run(string(raw), cfg.Normalize)

		outPath, _ := cmd.Flags().GetString("output")
		if outPath == "" {
			outPath = inPath // rewrite in place
		}
		if err := writeFileAtomic(outPath, cleaned); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
		summary.Print(os.Stderr)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringP("output", "o", "", "output path (default: rewrite the input in place)")
	normalizeCmd.Flags().Bool("relevel-headings", false, "recompute heading levels from dotted section numbers")

	rootCmd.AddCommand(normalizeCmd)
}
