// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package elsevier harvests Cell Press full text through the Elsevier
// article API. Each article takes two requests: an entitlement check that
// always yields a metadata companion file, then a full-text fetch for
// open-access articles. The API serves one article per request, so the
// batch size is pinned to one and concurrency comes from workers.
package elsevier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/article-harvest/internal/fetch"
	"github.com/pdiddy/article-harvest/internal/metrics"
	"github.com/pdiddy/article-harvest/internal/schedule"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

const (
	defaultEndpoint = "https://api.elsevier.com/content/article/pii"

	viewEntitled = "ENTITLED"
	viewFull     = "FULL"
)

// compactPIIPattern matches a PII with the dashes and parentheses removed:
// an S followed by eight ISSN characters, a two-digit year, a five-digit
// sequence number, and a check character.
var compactPIIPattern = regexp.MustCompile(`^S[0-9X]{16}$`)

// Source harvests Elsevier-hosted articles.
type Source struct {
	// Endpoint is the article API base URL, overridable for tests.
	Endpoint string

	apiKey  string
	force   bool
	store   *store.Store
	fetcher *fetch.Fetcher
	log     zerolog.Logger
}

// New builds the Elsevier source. With force set, full text is attempted
// even for articles the entitlement check reports as closed access.
func New(cfg types.HarvestConfig, apiKey string, st *store.Store, log zerolog.Logger) *Source {
	return &Source{
		Endpoint: defaultEndpoint,
		apiKey:   apiKey,
		force:    cfg.Force,
		store:    st,
		fetcher:  fetch.New(cfg.Fetch, "elsevier", log),
		log:      log,
	}
}

// Name implements harvest.Source.
func (s *Source) Name() string { return "elsevier" }

// BatchSize implements harvest.Source. The article API takes one PII per
// request.
func (s *Source) BatchSize() int { return 1 }

// Match accepts records hosted on cell.com or sciencedirect.com.
func (s *Source) Match(rec types.Record) bool {
	return strings.Contains(rec.URL, "cell.com") || strings.Contains(rec.URL, "sciencedirect.com")
}

// Prepare derives the compact PII from the URL's last path segment. Only
// the metadata companion is listed as the output path: it is written for
// every processed article, open or closed, so its presence marks the
// record as done.
func (s *Source) Prepare(rec types.Record) (schedule.Task, error) {
	pii := compactPII(rec.URL)
	if pii == "" {
		return schedule.Task{}, fmt.Errorf("no PII in %q", rec.URL)
	}
	return schedule.Task{
		ID:     pii,
		Record: rec,
		Paths:  []string{s.store.MetaPathFor(rec, pii, "xml")},
	}, nil
}

// Fetch processes the batch one article at a time: entitlement check,
// then full text when entitled or forced.
func (s *Source) Fetch(ctx context.Context, batch []schedule.Task) schedule.Outcome {
	var o schedule.Outcome
	headers := map[string]string{
		"X-ELS-APIKey": s.apiKey,
		"Accept":       "text/xml",
	}

	for _, task := range batch {
		if o.Stop {
			// Quota died mid-batch; the rest never gets attempted.
			o.Failed = append(o.Failed, stoppedEntry(task))
			continue
		}

		meta, err := s.fetcher.Get(ctx, s.articleURL(task.ID, viewEntitled), headers)
		if err != nil {
			o.Failed = append(o.Failed, failedEntry(task, err))
			o.Stop = o.Stop || fetch.IsQuotaExhausted(err)
			metrics.Failures.WithLabelValues("elsevier", fetch.KindOf(err).String()).Inc()
			continue
		}
		o.Files = append(o.Files, schedule.File{
			ID:      task.ID,
			Path:    task.Paths[0],
			Payload: meta,
		})

		if !isOpenAccess(meta) && !s.force {
			// Closed access: the metadata companion is all we can keep.
			s.log.Debug().Str("pii", task.ID).Msg("closed access, metadata only")
			o.Succeeded = append(o.Succeeded, task.ID)
			continue
		}

		full, err := s.fetcher.Get(ctx, s.articleURL(task.ID, viewFull), headers)
		if err != nil {
			o.Failed = append(o.Failed, failedEntry(task, err))
			o.Stop = o.Stop || fetch.IsQuotaExhausted(err)
			metrics.Failures.WithLabelValues("elsevier", fetch.KindOf(err).String()).Inc()
			continue
		}
		if !hasContent(full) {
			metrics.Failures.WithLabelValues("elsevier", fetch.KindNoContent.String()).Inc()
			o.NoContent = append(o.NoContent, task.ID)
			continue
		}

		o.Succeeded = append(o.Succeeded, task.ID)
		o.Files = append(o.Files, schedule.File{
			ID:      task.ID,
			Path:    s.store.PathFor(task.Record, task.ID, "xml"),
			Payload: full,
		})
	}
	return o
}

func (s *Source) articleURL(pii, view string) string {
	return fmt.Sprintf("%s/%s?view=%s", s.Endpoint, pii, view)
}

func failedEntry(task schedule.Task, err error) schedule.FailedEntry {
	return schedule.FailedEntry{
		ID:     task.ID,
		URL:    task.Record.URL,
		DOI:    task.Record.DOI,
		Reason: err.Error(),
	}
}

func stoppedEntry(task schedule.Task) schedule.FailedEntry {
	return schedule.FailedEntry{
		ID:     task.ID,
		URL:    task.Record.URL,
		DOI:    task.Record.DOI,
		Reason: schedule.StoppedReason,
	}
}

// compactPII extracts the PII from a fulltext URL's last path segment and
// strips its punctuation: S1074-7613(26)00001-2 becomes S1074761326000012.
func compactPII(rawURL string) string {
	trimmed := rawURL
	for _, sep := range []string{"?", "#"} {
		if i := strings.Index(trimmed, sep); i >= 0 {
			trimmed = trimmed[:i]
		}
	}
	trimmed = strings.TrimRight(trimmed, "/")
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]

	compact := strings.NewReplacer("-", "", "(", "", ")", "").Replace(segment)
	compact = strings.ToUpper(compact)
	if !compactPIIPattern.MatchString(compact) {
		return ""
	}
	return compact
}
