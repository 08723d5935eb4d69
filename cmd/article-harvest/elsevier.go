package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-harvest/internal/harvest"
	"github.com/pdiddy/article-harvest/internal/logging"
	"github.com/pdiddy/article-harvest/internal/sources/elsevier"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

var elsevierCmd = &cobra.Command{
	Use:   "elsevier",
	Short: "Download Cell Press full text through the Elsevier API",
	Long: `Elsevier merges the collected metadata files, filters for articles hosted
on cell.com or sciencedirect.com, and downloads them through the Elsevier
article API. Every article gets a metadata companion from the entitlement
check; open-access articles also get their full text. With --force, full
text is attempted even for closed-access articles.`,
	RunE: runElsevier,
}

func init() {
	addHarvestFlags(elsevierCmd, harvestDefaults{
		outputDir: "data",
		dataGlobs: []string{"metadata/*/*.json"},
		workers:   4,
	})
	rootCmd.AddCommand(elsevierCmd)
}

func runElsevier(cmd *cobra.Command, args []string) error {
	keyFlag, _ := cmd.Flags().GetString("api-key")
	apiKey := secretDefault("elsevier-api-key", keyFlag)
	if apiKey == "" {
		return fmt.Errorf("no Elsevier API key: pass --api-key or add .secrets/elsevier-api-key")
	}

	log := logging.NewLogger("elsevier")
	return runDownloader(cmd, log, func(cfg types.HarvestConfig, st *store.Store) harvest.Source {
		return elsevier.New(cfg, apiKey, st, log)
	})
}
