// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the article-harvest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/article-harvest/internal/logging"
	"github.com/pdiddy/article-harvest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the article-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "article-harvest",
	Short: "Resilient batch harvesting of journal article metadata and full text",
	Long: `article-harvest collects journal article metadata from RSS feeds and
downloads full text from the publisher APIs that serve it: Springer Nature,
Elsevier, and PubMed Central. Runs are idempotent; re-running a partially
failed harvest only fetches what is still missing.

Each source is a subcommand: rss discovers records, springer, elsevier, and
pmc download them, sci-urls emits an aria2c input file for Science PDFs, and
catalog reports on everything harvested so far.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := "info"
		if verbose {
			level = "debug"
		}
		logging.Setup(logging.Config{Level: level, Pretty: true})

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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./article-harvest.yaml or ~/.config/article-harvest/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address while running (e.g. :9105)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("article-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "article-harvest"))
		}
	}

	viper.SetEnvPrefix("ARTICLE_HARVEST")
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
