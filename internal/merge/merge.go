// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge loads bibliographic records from metadata JSON files,
// deduplicates them by source URL, and back-fills missing fields from
// file-level defaults.
//
// Field precedence is fixed: the first-seen record wins entirely; a later
// duplicate only fills fields the kept record genuinely lacks. A record's
// own date always beats the file-level default.
package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pdiddy/article-harvest/pkg/types"
)

// metadataFile mirrors the on-disk metadata format: optional top-level
// journal and publication date acting as per-file defaults, and an
// articles collection keyed by record ID (new format) or given as a list
// (legacy format). Files that are a bare list or a bare record also occur.
type metadataFile struct {
	Journal         string          `json:"journal"`
	PublicationDate string          `json:"publicationDate"`
	PubDate         string          `json:"pubdate"`
	Date            string          `json:"date"`
	Articles        json.RawMessage `json:"articles"`
}

// rawRecord accepts the field spellings seen across sources.
type rawRecord struct {
	Title           string `json:"title"`
	Journal         string `json:"journal"`
	Date            string `json:"date"`
	PublicationDate string `json:"publicationDate"`
	Author          string `json:"author"`
	URL             string `json:"url"`
	DOI             string `json:"doi"`
}

func (r rawRecord) toRecord() types.Record {
	date := r.PublicationDate
	if r.Date != "" {
		date = r.Date
	}
	return types.Record{
		Title:   r.Title,
		Journal: r.Journal,
		Date:    date,
		Author:  r.Author,
		URL:     r.URL,
		DOI:     r.DOI,
	}
}

// Load globs the given patterns, reads every matching metadata file in
// sorted order, and returns the merged, deduplicated record list. Records
// without a URL are dropped: the URL is the dedup key and must be non-empty.
func Load(patterns []string, log zerolog.Logger) ([]types.Record, error) {
	var paths []string
	seenPaths := make(map[string]struct{})
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pat, err)
		}
		for _, m := range matches {
			if _, dup := seenPaths[m]; !dup {
				seenPaths[m] = struct{}{}
				paths = append(paths, m)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no metadata files matched %v", patterns)
	}
	sort.Strings(paths)

	index := make(map[string]int) // url → position in out
	var out []types.Record

	for _, path := range paths {
		records, err := loadFile(path)
		if err != nil {
			log.Warn().Str("file", path).Err(err).Msg("skipping unreadable metadata file")
			continue
		}
		for _, rec := range records {
			if rec.URL == "" {
				continue
			}
			if at, dup := index[rec.URL]; dup {
				fillMissing(&out[at], rec)
				continue
			}
			index[rec.URL] = len(out)
			out = append(out, rec)
		}
	}

	log.Info().Int("files", len(paths)).Int("records", len(out)).Msg("merged metadata")
	return out, nil
}

// loadFile parses one metadata file and applies its file-level defaults.
func loadFile(path string) ([]types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file metadataFile
	var items []rawRecord

	if err := json.Unmarshal(data, &file); err == nil && len(file.Articles) > 0 {
		items, err = decodeArticles(file.Articles)
		if err != nil {
			return nil, fmt.Errorf("parsing articles: %w", err)
		}
	} else if listItems, listErr := decodeArticles(data); listErr == nil {
		items = listItems
	} else if one, oneErr := decodeSingle(data); oneErr == nil {
		items = []rawRecord{one}
	} else {
		return nil, fmt.Errorf("unrecognized metadata format")
	}

	defaultDate := file.PublicationDate
	if defaultDate == "" {
		defaultDate = file.PubDate
	}
	if defaultDate == "" {
		defaultDate = file.Date
	}

	records := make([]types.Record, 0, len(items))
	for _, item := range items {
		rec := item.toRecord()
		if rec.Journal == "" {
			rec.Journal = file.Journal
		}
		if rec.Date == "" {
			rec.Date = defaultDate
		}
		records = append(records, rec)
	}
	return records, nil
}

// decodeArticles accepts either a map keyed by record ID or a list.
func decodeArticles(raw json.RawMessage) ([]rawRecord, error) {
	var byID map[string]rawRecord
	if err := json.Unmarshal(raw, &byID); err == nil {
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		items := make([]rawRecord, 0, len(byID))
		for _, id := range ids {
			items = append(items, byID[id])
		}
		return items, nil
	}

	var list []rawRecord
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	return nil, fmt.Errorf("articles is neither a map nor a list")
}

// decodeSingle accepts a file that is one bare record object. The URL is
// required so that arbitrary JSON objects are not mistaken for a record.
func decodeSingle(raw json.RawMessage) (rawRecord, error) {
	var one rawRecord
	if err := json.Unmarshal(raw, &one); err != nil {
		return rawRecord{}, err
	}
	if one.URL == "" {
		return rawRecord{}, fmt.Errorf("bare record has no url")
	}
	return one, nil
}

// fillMissing copies src fields into dst only where dst has none. The
// first-seen record keeps every field it already carries.
func fillMissing(dst *types.Record, src types.Record) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Journal == "" {
		dst.Journal = src.Journal
	}
	if dst.Date == "" {
		dst.Date = src.Date
	}
	if dst.Author == "" {
		dst.Author = src.Author
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
}
