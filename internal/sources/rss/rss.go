// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rss collects article metadata from journal RSS feeds and writes
// the dated metadata JSON files the downloaders later merge. It is the
// discovery half of the pipeline: no full text, just records.
package rss

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/article-harvest/pkg/types"
)

// DefaultFeeds maps journal names to their RSS feed URLs.
func DefaultFeeds() map[string]string {
	return map[string]string{
		"Nature":                       "https://www.nature.com/nature.rss",
		"Nature Immunology":            "https://www.nature.com/ni.rss",
		"Nature Methods":               "https://www.nature.com/nmeth.rss",
		"Nature Biotechnology":         "https://www.nature.com/nbt.rss",
		"Nature Machine Intelligence":  "https://www.nature.com/natmachintell.rss",
		"Nature Computational Science": "https://www.nature.com/natcomputsci.rss",
		"Science":                      "https://www.science.org/action/showFeed?type=etoc&feed=rss&jc=science",
		"Science Immunology":           "https://www.science.org/action/showFeed?type=etoc&feed=rss&jc=sciimmunol",
		"Cell":                         "https://www.cell.com/cell/inpress.rss",
		"Cell Immunity":                "https://www.cell.com/immunity/inpress.rss",
	}
}

// fileMetadata heads each dated output file.
type fileMetadata struct {
	Timestamp     string         `json:"timestamp"`
	JournalStats  map[string]int `json:"journal_stats"`
	TotalArticles int            `json:"total_articles"`
}

// outputFile is the on-disk format the merger reads back: articles keyed
// by article ID.
type outputFile struct {
	Metadata fileMetadata            `json:"metadata"`
	Articles map[string]types.Record `json:"articles"`
}

// Harvester fetches the configured feeds and writes one metadata file per
// invocation at <outputDir>/<year>/<mmdd>.json.
type Harvester struct {
	// Feeds maps journal names to feed URLs.
	Feeds map[string]string

	// Limiter paces feed fetches; the default is one per second.
	Limiter *rate.Limiter

	outputDir string
	parser    *gofeed.Parser
	log       zerolog.Logger
	now       func() time.Time
}

// New builds an RSS harvester writing under outputDir. A nil feeds map
// selects the default journal set.
func New(outputDir string, feeds map[string]string, log zerolog.Logger) *Harvester {
	if feeds == nil {
		feeds = DefaultFeeds()
	}
	return &Harvester{
		Feeds:     feeds,
		Limiter:   rate.NewLimiter(rate.Limit(1), 1),
		outputDir: outputDir,
		parser:    gofeed.NewParser(),
		log:       log,
		now:       time.Now,
	}
}

// Run fetches every feed, filters out non-research entries, and writes the
// dated metadata file. It returns the written path. A feed that fails to
// fetch or parse is logged and skipped; the run only fails when nothing
// can be written.
func (h *Harvester) Run(ctx context.Context, w io.Writer) (string, error) {
	articles := make(map[string]types.Record)
	stats := make(map[string]int)

	journals := make([]string, 0, len(h.Feeds))
	for j := range h.Feeds {
		journals = append(journals, j)
	}
	sort.Strings(journals)

	for _, journal := range journals {
		if err := h.Limiter.Wait(ctx); err != nil {
			return "", err
		}

		feed, err := h.parser.ParseURLWithContext(h.Feeds[journal], ctx)
		if err != nil {
			h.log.Warn().Str("journal", journal).Err(err).Msg("feed fetch failed")
			fmt.Fprintf(w, "%-30s fetch failed: %v\n", journal, err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			rec, id, ok := entryRecord(item, journal)
			if !ok {
				continue
			}
			articles[id] = rec
			count++
		}
		stats[journal] = count
		fmt.Fprintf(w, "%-30s %d articles\n", journal, count)
	}

	// One clock reading for the directory, filename, and timestamp, so a
	// run straddling midnight cannot split them.
	now := h.now()
	path := filepath.Join(h.outputDir, now.Format("2006"), now.Format("0102")+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating metadata directory: %w", err)
	}

	out := outputFile{
		Metadata: fileMetadata{
			Timestamp:     now.Format(time.RFC3339),
			JournalStats:  stats,
			TotalArticles: len(articles),
		},
		Articles: articles,
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing metadata file: %w", err)
	}

	fmt.Fprintf(w, "\nTotal articles saved: %d to %s\n", len(articles), path)
	return path, nil
}

// entryRecord converts one feed item into a record, reporting ok=false for
// entries the pipeline excludes: Nature news items (d-prefixed IDs) and
// corrections or errata.
func entryRecord(item *gofeed.Item, journal string) (types.Record, string, bool) {
	cleanURL := item.Link
	if i := strings.Index(cleanURL, "?"); i >= 0 {
		cleanURL = cleanURL[:i]
	}
	id := strings.TrimRight(cleanURL, "/")
	id = id[strings.LastIndex(id, "/")+1:]
	if id == "" {
		return types.Record{}, "", false
	}

	if strings.HasPrefix(journal, "Nature") && strings.HasPrefix(id, "d") {
		return types.Record{}, "", false
	}
	if isCorrection(item.Title) {
		return types.Record{}, "", false
	}

	return types.Record{
		Title:   item.Title,
		Journal: journal,
		Date:    extractDate(item, journal),
		Author:  authorNames(item),
		URL:     cleanURL,
		DOI:     extractDOI(item),
	}, id, true
}

var correctionMarkers = []string{
	"Correction:",
	"Author Correction",
	"Publisher Correction",
	"Erratum",
}

func isCorrection(title string) bool {
	for _, marker := range correctionMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

func authorNames(item *gofeed.Item) string {
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}
