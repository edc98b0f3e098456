package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagescribe/internal/runlog"
	"github.com/pdiddy/pagescribe/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Show past conversion runs and their failed pages",
	Long: `Report reads the run ledger written by convert. With no arguments it
lists recent runs; with a run ID it shows that run's failed pages, the
ones that need manual transcription or a re-run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg types.PipelineConfig
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		if max, _ := cmd.Flags().GetInt("max-runs"); max != 0 {
			cfg.Report.MaxRuns = max
		}

		store, err := runlog.Open(cfg.Report)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 0 {
			return listRuns(store)
		}

		var runID int64
		if _, err := fmt.Sscanf(args[0], "%d", &runID); err != nil {
			return fmt.Errorf("invalid run ID %q", args[0])
		}

		if format, _ := cmd.Flags().GetString("format"); format == "yaml" {
			return store.ExportYAML(os.Stdout, runID)
		}
		return showRun(store, runID)
	},
}

func listRuns(store *runlog.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Printf("%-6s %-20s %-6s %-6s %s\n", "ID", "STARTED", "PAGES", "FAILED", "SOURCE")
	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-6d %-6d %s\n", r.ID, r.StartedAt, r.Pages, r.Failed, r.Source)
	}
	return nil
}

func showRun(store *runlog.Store, runID int64) error {
	failed, err := store.FailedPages(runID)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		fmt.Printf("Run %d: all pages converted.\n", runID)
		return nil
	}
	fmt.Printf("Run %d: %d failed pages: %v\n", runID, len(failed), failed)
	fmt.Printf("Search the output for %q to locate them.\n", types.FailedPageSentinel)
	return nil
}

func init() {
	reportCmd.Flags().String("format", "", "output format: yaml for a machine-readable report")
	reportCmd.Flags().Int("max-runs", 0, "maximum runs to list (default 20)")

	rootCmd.AddCommand(reportCmd)
}
