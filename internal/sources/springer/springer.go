// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package springer harvests open-access JATS full text from the Springer
// Nature API. DOIs are batched into a single OR query, so one request
// serves up to BatchSize articles.
package springer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/article-harvest/internal/fetch"
	"github.com/pdiddy/article-harvest/internal/jats"
	"github.com/pdiddy/article-harvest/internal/metrics"
	"github.com/pdiddy/article-harvest/internal/schedule"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

const (
	defaultEndpoint  = "https://api.springernature.com/openaccess/jats"
	defaultBatchSize = 10
)

// Source harvests Springer Nature open-access articles.
type Source struct {
	// Endpoint is the JATS API base URL, overridable for tests.
	Endpoint string

	apiKey    string
	batchSize int
	store     *store.Store
	fetcher   *fetch.Fetcher
	log       zerolog.Logger
}

// New builds the Springer source.
func New(cfg types.HarvestConfig, apiKey string, st *store.Store, log zerolog.Logger) *Source {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Source{
		Endpoint:  defaultEndpoint,
		apiKey:    apiKey,
		batchSize: batchSize,
		store:     st,
		fetcher:   fetch.New(cfg.Fetch, "springer", log),
		log:       log,
	}
}

// Name implements harvest.Source.
func (s *Source) Name() string { return "springer" }

// BatchSize implements harvest.Source.
func (s *Source) BatchSize() int { return s.batchSize }

// Match accepts records hosted on nature.com or springer.com.
func (s *Source) Match(rec types.Record) bool {
	return strings.Contains(rec.URL, "nature.com") || strings.Contains(rec.URL, "springer.com")
}

// Prepare derives the article ID from the URL's /articles/ segment and the
// DOI from the ID when the record carries none. Nature article IDs starting
// with "s" map to DOIs under the 10.1038 prefix.
func (s *Source) Prepare(rec types.Record) (schedule.Task, error) {
	id := articleID(rec.URL)
	if id == "" {
		return schedule.Task{}, fmt.Errorf("no article ID in %q", rec.URL)
	}

	doi := rec.DOI
	if doi == "" && strings.HasPrefix(id, "s") {
		doi = "10.1038/" + id
	}
	if doi == "" {
		return schedule.Task{}, fmt.Errorf("no DOI derivable for %q", id)
	}
	rec.DOI = doi

	return schedule.Task{
		ID:     id,
		Record: rec,
		Paths:  []string{s.store.PathFor(rec, id, "xml")},
	}, nil
}

// Fetch requests one batch of DOIs and splits the JATS response back into
// per-article payloads.
func (s *Source) Fetch(ctx context.Context, batch []schedule.Task) schedule.Outcome {
	terms := make([]string, 0, len(batch))
	byDOI := make(map[string]schedule.Task, len(batch))
	for _, task := range batch {
		terms = append(terms, "doi:"+task.Record.DOI)
		byDOI[task.Record.DOI] = task
	}

	query := url.Values{
		"api_key": {s.apiKey},
		"q":       {"(" + strings.Join(terms, " OR ") + ")"},
		"p":       {strconv.Itoa(len(batch))},
	}

	body, err := s.fetcher.Get(ctx, s.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return failBatch(batch, err)
	}

	articles, err := jats.SplitArticles(body)
	if err != nil {
		s.log.Error().Err(err).Msg("parsing JATS response")
		return failBatch(batch, &fetch.Error{Kind: fetch.KindUnparseable, Detail: err.Error()})
	}

	var o schedule.Outcome
	served := make(map[string]bool, len(batch))

	for _, raw := range articles {
		meta, err := jats.ParseMeta(raw)
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping unparseable article element")
			continue
		}
		task, ok := matchTask(byDOI, meta)
		if !ok {
			s.log.Warn().Str("doi", meta.IDs["doi"]).Msg("response article matches no task")
			continue
		}
		served[task.Record.DOI] = true

		if !meta.HasBody {
			metrics.Failures.WithLabelValues("springer", fetch.KindNoContent.String()).Inc()
			o.NoContent = append(o.NoContent, task.ID)
			continue
		}
		o.Succeeded = append(o.Succeeded, task.ID)
		o.Files = append(o.Files, schedule.File{
			ID:      task.ID,
			Path:    task.Paths[0],
			Payload: raw,
		})
	}

	// DOIs the API did not return at all.
	for _, task := range batch {
		if served[task.Record.DOI] {
			continue
		}
		metrics.Failures.WithLabelValues("springer", fetch.KindPermanent.String()).Inc()
		o.Failed = append(o.Failed, schedule.FailedEntry{
			ID:     task.ID,
			URL:    task.Record.URL,
			DOI:    task.Record.DOI,
			Reason: "article absent from API response",
		})
	}
	return o
}

// matchTask links a response article back to its task by publisher ID
// first, then by DOI.
func matchTask(byDOI map[string]schedule.Task, meta jats.Meta) (schedule.Task, bool) {
	if pubID := meta.IDs["publisher-id"]; pubID != "" {
		if task, ok := byDOI["10.1038/"+pubID]; ok {
			return task, true
		}
	}
	if doi := meta.IDs["doi"]; doi != "" {
		if task, ok := byDOI[doi]; ok {
			return task, true
		}
	}
	return schedule.Task{}, false
}

// failBatch marks every task in the batch failed with the same cause, and
// stops the run when the cause is quota exhaustion.
func failBatch(batch []schedule.Task, err error) schedule.Outcome {
	o := schedule.Outcome{Stop: fetch.IsQuotaExhausted(err)}
	kind := fetch.KindOf(err).String()
	for _, task := range batch {
		metrics.Failures.WithLabelValues("springer", kind).Inc()
		o.Failed = append(o.Failed, schedule.FailedEntry{
			ID:     task.ID,
			URL:    task.Record.URL,
			DOI:    task.Record.DOI,
			Reason: err.Error(),
		})
	}
	return o
}

// articleID extracts the segment after /articles/, without query or fragment.
func articleID(rawURL string) string {
	_, rest, found := strings.Cut(rawURL, "/articles/")
	if !found {
		return ""
	}
	for _, sep := range []string{"?", "#"} {
		if i := strings.Index(rest, sep); i >= 0 {
			rest = rest[:i]
		}
	}
	return strings.Trim(rest, "/")
}
