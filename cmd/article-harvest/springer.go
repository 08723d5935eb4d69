// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-harvest/internal/harvest"
	"github.com/pdiddy/article-harvest/internal/logging"
	"github.com/pdiddy/article-harvest/internal/sources/springer"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

var springerCmd = &cobra.Command{
	Use:   "springer",
	Short: "Download Springer Nature open-access full text",
	Long: `Springer merges the collected metadata files, filters for articles hosted
on nature.com or springer.com, and downloads their JATS full text through the
Springer Nature open-access API, ten DOIs per request. Articles already on
disk are skipped.`,
	RunE: runSpringer,
}

func init() {
	addHarvestFlags(springerCmd, harvestDefaults{
		outputDir: "data",
		dataGlobs: []string{"metadata/*/*.json"},
		batchSize: 10,
		workers:   5,
	})
	rootCmd.AddCommand(springerCmd)
}

func runSpringer(cmd *cobra.Command, args []string) error {
	keyFlag, _ := cmd.Flags().GetString("api-key")
	apiKey := secretDefault("springer-api-key", keyFlag)
	if apiKey == "" {
		return fmt.Errorf("no Springer API key: pass --api-key or add .secrets/springer-api-key")
	}

	log := logging.NewLogger("springer")
	return runDownloader(cmd, log, func(cfg types.HarvestConfig, st *store.Store) harvest.Source {
		return springer.New(cfg, apiKey, st, log)
	})
}
