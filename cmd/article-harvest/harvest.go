// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/article-harvest/internal/catalog"
	"github.com/pdiddy/article-harvest/internal/harvest"
	"github.com/pdiddy/article-harvest/internal/merge"
	"github.com/pdiddy/article-harvest/internal/metrics"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

const defaultUserAgent = "article-harvest/0.1"

// harvestDefaults carries the per-source flag defaults.
type harvestDefaults struct {
	outputDir string
	dataGlobs []string
	batchSize int
	workers   int
}

// addHarvestFlags registers the flags shared by every downloader command.
func addHarvestFlags(cmd *cobra.Command, d harvestDefaults) {
	cmd.Flags().String("output-dir", d.outputDir, "root directory of the output tree")
	if d.dataGlobs != nil {
		cmd.Flags().StringSlice("data-glob", d.dataGlobs, "glob(s) for the metadata JSON files to merge")
	}
	if d.batchSize > 0 {
		cmd.Flags().Int("batch-size", d.batchSize, "records per API request")
	}
	cmd.Flags().Int("workers", d.workers, "concurrent batch workers")
	cmd.Flags().Int("limit", 0, "cap the number of records processed (0 = no cap)")
	cmd.Flags().Bool("force", false, "overwrite existing output files")
	cmd.Flags().String("failure-log", "noresponse.log", "append-only JSON-lines log of failed records")
	cmd.Flags().String("no-content-log", "nobody.log", "append-only list of records without usable content")
	cmd.Flags().String("catalog", "", "SQLite harvest ledger path (empty disables the catalog)")
	cmd.Flags().Duration("timeout", 60*time.Second, "HTTP request timeout")
	cmd.Flags().Float64("rps", 0, "pace outgoing requests per second (0 = unpaced)")
	cmd.Flags().String("api-key", "", "API key (default: the matching .secrets/ file)")
}

// harvestConfig assembles the run configuration from the command's flags.
func harvestConfig(cmd *cobra.Command) types.HarvestConfig {
	var cfg types.HarvestConfig
	cfg.OutputDir, _ = cmd.Flags().GetString("output-dir")
	if cmd.Flags().Lookup("data-glob") != nil {
		cfg.DataGlobs, _ = cmd.Flags().GetStringSlice("data-glob")
	}
	if cmd.Flags().Lookup("batch-size") != nil {
		cfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
	cfg.Workers, _ = cmd.Flags().GetInt("workers")
	cfg.Limit, _ = cmd.Flags().GetInt("limit")
	cfg.Force, _ = cmd.Flags().GetBool("force")
	cfg.FailureLog, _ = cmd.Flags().GetString("failure-log")
	cfg.NoContentLog, _ = cmd.Flags().GetString("no-content-log")
	cfg.CatalogPath, _ = cmd.Flags().GetString("catalog")

	cfg.Fetch.Timeout, _ = cmd.Flags().GetDuration("timeout")
	cfg.Fetch.RequestsPerSecond, _ = cmd.Flags().GetFloat64("rps")
	cfg.Fetch.UserAgent = defaultUserAgent
	return cfg
}

// newRunner wires the store and optional catalog into a harvest runner.
// The returned cleanup closes the catalog.
func newRunner(cfg types.HarvestConfig, log zerolog.Logger) (*harvest.Runner, func(), error) {
	runner := &harvest.Runner{
		Store:        store.New(cfg.OutputDir, cfg.Force),
		Workers:      cfg.Workers,
		Limit:        cfg.Limit,
		FailureLog:   cfg.FailureLog,
		NoContentLog: cfg.NoContentLog,
		Out:          os.Stdout,
		Log:          log,
	}
	cleanup := func() {}
	if cfg.CatalogPath != "" {
		cat, err := catalog.Open(cfg.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		runner.Catalog = cat
		cleanup = func() { cat.Close() }
	}
	return runner, cleanup, nil
}

// startMetrics serves /metrics when --metrics-addr is set; the returned
// stop function shuts the listener down.
func startMetrics(cmd *cobra.Command) func() {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		return func() {}
	}
	srv := metrics.Serve(addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// runDownloader is the shared body of the merge-driven downloader commands
// (springer, elsevier): merge the metadata files, run the source, report.
func runDownloader(cmd *cobra.Command, log zerolog.Logger, build func(cfg types.HarvestConfig, st *store.Store) harvest.Source) error {
	cfg := harvestConfig(cmd)

	stopMetrics := startMetrics(cmd)
	defer stopMetrics()

	records, err := merge.Load(cfg.DataGlobs, log)
	if err != nil {
		return err
	}

	runner, cleanup, err := newRunner(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := runner.Run(cmd.Context(), build(cfg, runner.Store), records)
	if err != nil {
		return err
	}
	if summary.Stopped {
		return fmt.Errorf("harvest stopped early: API quota exhausted")
	}
	return nil
}
