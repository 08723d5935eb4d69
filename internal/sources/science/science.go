// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package science converts Science-family article records into an aria2c
// input file of PDF URLs. Science has no harvesting API, so the pipeline
// hands the download list to an external fetcher instead.
package science

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

// Aria2Input builds aria2c input lines for every Science-family record:
// the PDF URL followed by indented dir= and out= options. Records without
// a derivable PDF URL are skipped.
func Aria2Input(records []types.Record, pdfRoot string) []string {
	var lines []string
	for _, rec := range records {
		if !isScienceFamily(rec.Journal) {
			continue
		}
		pdfURL := pdfURLFor(rec)
		if pdfURL == "" {
			continue
		}

		dir := filepath.Join(pdfRoot, store.YearFromDate(rec.Date), store.PathSafeJournal(rec.Journal))
		lines = append(lines,
			pdfURL,
			"  dir="+dir,
			"  out="+pdfName(rec),
		)
	}
	return lines
}

// WriteFile writes the aria2c input lines to path, creating parent
// directories, and returns the number of articles covered.
func WriteFile(path string, lines []string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return 0, fmt.Errorf("writing aria2c input: %w", err)
	}
	return len(lines) / 3, nil
}

func isScienceFamily(journal string) bool {
	if strings.HasPrefix(journal, "Science") {
		return true
	}
	info, ok := store.JournalInfoFor(journal)
	return ok && (info.Abbr == "science" || info.Abbr == "sciimmunol")
}

// pdfURLFor derives the PDF URL from the DOI when present, otherwise by
// rewriting the article URL's /doi/ segment.
func pdfURLFor(rec types.Record) string {
	if rec.DOI != "" {
		return "https://www.science.org/doi/pdf/" + rec.DOI
	}
	switch {
	case strings.Contains(rec.URL, "science.org/doi/abs/"):
		return strings.Replace(rec.URL, "/doi/abs/", "/doi/pdf/", 1)
	case strings.Contains(rec.URL, "science.org/doi/") && !strings.Contains(rec.URL, "/pdf/"):
		return strings.Replace(rec.URL, "/doi/", "/doi/pdf/", 1)
	}
	return ""
}

func pdfName(rec types.Record) string {
	if rec.DOI != "" {
		return strings.ReplaceAll(rec.DOI, "/", "_") + ".pdf"
	}
	name := rec.URL[strings.LastIndex(rec.URL, "/")+1:]
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	return name + ".pdf"
}
