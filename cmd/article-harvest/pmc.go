// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-harvest/internal/logging"
	"github.com/pdiddy/article-harvest/internal/sources/pmc"
	"github.com/pdiddy/article-harvest/internal/window"
)

var pmcCmd = &cobra.Command{
	Use:   "pmc",
	Short: "Download journal back-catalogs from PubMed Central",
	Long: `Pmc enumerates every article a journal published within a year range
through the NCBI E-utilities and downloads the full-text XML plus an
esummary metadata companion. The date range is split automatically whenever
esearch caps the result count, so large back-catalogs enumerate completely.

Without an API key NCBI allows 3 requests per second; add
.secrets/ncbi-api-key and .secrets/ncbi-email to raise the allowance.`,
	RunE: runPMC,
}

func init() {
	addHarvestFlags(pmcCmd, harvestDefaults{
		outputDir: "data/ncbi",
		batchSize: 30,
		workers:   12,
	})
	pmcCmd.Flags().StringSlice("journal", nil, "journal name(s) to harvest (required)")
	pmcCmd.Flags().Int("from-year", 0, "first publication year (default: current year)")
	pmcCmd.Flags().Int("to-year", 0, "last publication year (default: from-year)")
	pmcCmd.Flags().String("email", "", "contact email for NCBI (default: .secrets/ncbi-email)")
	rootCmd.AddCommand(pmcCmd)
}

func runPMC(cmd *cobra.Command, args []string) error {
	journals, _ := cmd.Flags().GetStringSlice("journal")
	if len(journals) == 0 {
		return fmt.Errorf("no journals: pass --journal at least once")
	}

	fromYear, _ := cmd.Flags().GetInt("from-year")
	if fromYear == 0 {
		fromYear = time.Now().Year()
	}
	toYear, _ := cmd.Flags().GetInt("to-year")
	if toYear == 0 {
		toYear = fromYear
	}
	if toYear < fromYear {
		return fmt.Errorf("to-year %d precedes from-year %d", toYear, fromYear)
	}

	keyFlag, _ := cmd.Flags().GetString("api-key")
	emailFlag, _ := cmd.Flags().GetString("email")
	apiKey := secretDefault("ncbi-api-key", keyFlag)
	email := secretDefault("ncbi-email", emailFlag)

	cfg := harvestConfig(cmd)
	log := logging.NewLogger("pmc")

	stopMetrics := startMetrics(cmd)
	defer stopMetrics()

	runner, cleanup, err := newRunner(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	h := pmc.New(cfg, apiKey, email, log)
	win := window.Window{StartYear: fromYear, EndYear: toYear}

	for _, journal := range journals {
		summary, err := h.Harvest(cmd.Context(), runner, journal, win)
		if err != nil {
			return fmt.Errorf("harvesting %s: %w", journal, err)
		}
		if summary.Stopped {
			return fmt.Errorf("harvest stopped early: API quota exhausted")
		}
	}
	return nil
}
