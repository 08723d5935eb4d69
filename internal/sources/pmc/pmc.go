// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pmc harvests full-text XML from PubMed Central through the NCBI
// E-utilities. Unlike the publisher sources it does not filter merged
// records: the work list comes from esearch, windowed by publication date
// because esearch silently caps any single query's result set.
package pmc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/pdiddy/article-harvest/internal/fetch"
	"github.com/pdiddy/article-harvest/internal/harvest"
	"github.com/pdiddy/article-harvest/internal/schedule"
	"github.com/pdiddy/article-harvest/internal/window"
	"github.com/pdiddy/article-harvest/pkg/types"
)

const (
	defaultEndpoint  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultBatchSize = 30

	// resultCap is the count at which esearch results are considered
	// truncated and the date window must be split.
	resultCap = 9999

	// retMax is the page size requested from esearch.
	retMax = 10000
)

// outputFilePattern recognizes previously harvested article files when
// scanning the output tree.
var outputFilePattern = regexp.MustCompile(`^PMC\d+\.xml$`)

// Harvester drives PMC harvests for one or more journals.
type Harvester struct {
	// Endpoint is the E-utilities base URL, overridable for tests.
	Endpoint string

	apiKey    string
	email     string
	root      string
	batchSize int
	fetcher   *fetch.Fetcher
	log       zerolog.Logger
}

// New builds a PMC harvester writing under cfg.OutputDir. The API key and
// contact email are optional but raise NCBI's rate allowance.
func New(cfg types.HarvestConfig, apiKey, email string, log zerolog.Logger) *Harvester {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Harvester{
		Endpoint:  defaultEndpoint,
		apiKey:    apiKey,
		email:     email,
		root:      cfg.OutputDir,
		batchSize: batchSize,
		fetcher:   fetch.New(cfg.Fetch, "pmc", log),
		log:       log,
	}
}

// Harvest enumerates every article of journal within the window, skips
// articles already in the output tree, and downloads the rest through the
// runner. Output lands at <root>/<yyyymm>/<journal>/<PMCID>.xml with an
// esummary companion at <PMCID>_meta.json.
func (h *Harvester) Harvest(ctx context.Context, runner *harvest.Runner, journal string, win window.Window) (*schedule.Summary, error) {
	ids, err := window.Enumerate(ctx, win, resultCap, h.pageFunc(journal), h.log)
	if err != nil {
		return nil, err
	}

	existing, err := existingIDs(h.root)
	if err != nil {
		return nil, err
	}

	summary := schedule.NewSummary()
	var tasks []schedule.Task
	for _, id := range ids {
		summary.Found(journal)
		if existing[id] {
			summary.AlreadyExists(journal)
			continue
		}
		if runner.Limit > 0 && len(tasks) >= runner.Limit {
			continue
		}
		summary.ToProcess(journal, id)
		tasks = append(tasks, schedule.Task{
			ID:     id,
			Record: types.Record{Journal: journal},
		})
	}

	h.log.Info().
		Str("journal", journal).
		Stringer("window", win).
		Int("found", len(ids)).
		Int("to_process", len(tasks)).
		Msg("starting PMC harvest")

	return runner.RunTasks(ctx, "pmc", summary, tasks, h.batchSize, h.fetchBatch(journal))
}

// existingIDs walks the output tree and collects the PMCIDs of article
// files already present, regardless of which month bucket they landed in.
// The scan replaces per-task existence checks because an article's bucket
// is only known after its metadata is fetched.
func existingIDs(root string) (map[string]bool, error) {
	out := make(map[string]bool)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		// A missing output tree just means nothing was harvested yet.
		return out, nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if outputFilePattern.MatchString(name) {
			out[name[:len(name)-len(".xml")]] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning output tree: %w", err)
	}
	return out, nil
}
