// Package main is the entry point for the pagescribe CLI.
//
// pagescribe converts a paginated PDF into one clean Markdown document:
// each page is rasterized, transcribed by a vision model under a tiered
// retry policy, assembled in page order, and normalized into a single
// consistent document. Each stage is a subcommand: convert, normalize,
// report.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagescribe/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when non-empty, otherwise the loaded
// secret value for key, otherwise "".
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the pagescribe CLI.
var rootCmd = &cobra.Command{
	Use:   "pagescribe",
	Short: "Convert paginated PDFs to unified Markdown via vision transcription",
	Long: `pagescribe turns a scanned or typeset PDF into one clean Markdown document.

Each page is rendered to an image and transcribed by a vision model; pages
that fail every model tier stay visible as greppable placeholders instead
of silently vanishing. The normalize stage then stitches the per-page
fragments together: page boundaries become traceable markers, tables split
across page breaks are merged, and repeated headings collapse.

Run convert first, then normalize the raw output; report lists past runs
and the pages still awaiting manual remediation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pagescribe.yaml or ~/.config/pagescribe/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pagescribe")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pagescribe"))
		}
	}

	viper.SetEnvPrefix("PAGESCRIBE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
