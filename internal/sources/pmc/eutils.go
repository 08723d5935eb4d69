// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pmc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/article-harvest/internal/fetch"
	"github.com/pdiddy/article-harvest/internal/jats"
	"github.com/pdiddy/article-harvest/internal/metrics"
	"github.com/pdiddy/article-harvest/internal/schedule"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/internal/window"
)

// pubDatePriority orders the JATS publication date types used to pick an
// article's month bucket.
var pubDatePriority = []string{"epub", "ppub", "electronic", "collection"}

// pageFunc adapts esearch into the window enumerator's paging interface.
func (h *Harvester) pageFunc(journal string) window.PageFunc {
	return func(ctx context.Context, w window.Window, offset int) ([]string, int, error) {
		q := url.Values{
			"db":       {"pmc"},
			"retmode":  {"json"},
			"retmax":   {strconv.Itoa(retMax)},
			"retstart": {strconv.Itoa(offset)},
			"term":     {searchTerm(journal, w)},
		}
		h.auth(q)

		body, err := h.fetcher.Get(ctx, h.Endpoint+"/esearch.fcgi?"+q.Encode(), nil)
		if err != nil {
			return nil, 0, err
		}

		var parsed struct {
			Result struct {
				Count  string   `json:"count"`
				IDList []string `json:"idlist"`
			} `json:"esearchresult"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, 0, fmt.Errorf("parsing esearch response: %w", err)
		}
		total, err := strconv.Atoi(parsed.Result.Count)
		if err != nil {
			return nil, 0, fmt.Errorf("esearch count %q: %w", parsed.Result.Count, err)
		}

		ids := make([]string, 0, len(parsed.Result.IDList))
		for _, uid := range parsed.Result.IDList {
			ids = append(ids, normalizePMCID(uid))
		}
		return ids, total, nil
	}
}

// fetchBatch downloads one batch: esummary for the metadata companions,
// efetch for the article XML, split back into per-article payloads.
func (h *Harvester) fetchBatch(journal string) schedule.BatchFunc {
	return func(ctx context.Context, batch []schedule.Task) schedule.Outcome {
		uids := make([]string, len(batch))
		byID := make(map[string]schedule.Task, len(batch))
		for i, task := range batch {
			uids[i] = strings.TrimPrefix(task.ID, "PMC")
			byID[task.ID] = task
		}
		idParam := strings.Join(uids, ",")

		summaries, err := h.fetchSummaries(ctx, idParam)
		if err != nil {
			return failBatch(batch, err)
		}

		q := url.Values{"db": {"pmc"}, "retmode": {"xml"}, "id": {idParam}}
		h.auth(q)
		body, err := h.fetcher.Get(ctx, h.Endpoint+"/efetch.fcgi?"+q.Encode(), nil)
		if err != nil {
			return failBatch(batch, err)
		}

		articles, err := jats.SplitArticles(body)
		if err != nil {
			h.log.Error().Err(err).Msg("parsing efetch response")
			return failBatch(batch, &fetch.Error{Kind: fetch.KindUnparseable, Detail: err.Error()})
		}

		var o schedule.Outcome
		served := make(map[string]bool, len(batch))

		for _, raw := range articles {
			meta, err := jats.ParseMeta(raw)
			if err != nil {
				h.log.Warn().Err(err).Msg("skipping unparseable article element")
				continue
			}
			pmcid := articlePMCID(meta)
			if _, ok := byID[pmcid]; !ok {
				h.log.Warn().Str("pmcid", pmcid).Msg("response article matches no task")
				continue
			}
			served[pmcid] = true

			dir := filepath.Join(h.root, monthBucket(meta.PubDates), store.PathSafeJournal(journal))
			o.Succeeded = append(o.Succeeded, pmcid)
			o.Files = append(o.Files, schedule.File{
				ID:      pmcid,
				Path:    filepath.Join(dir, pmcid+".xml"),
				Payload: raw,
			})
			if entry, ok := summaries[strings.TrimPrefix(pmcid, "PMC")]; ok {
				o.Files = append(o.Files, schedule.File{
					ID:      pmcid,
					Path:    filepath.Join(dir, pmcid+"_meta.json"),
					Payload: entry,
				})
			}
		}

		for _, task := range batch {
			if served[task.ID] {
				continue
			}
			metrics.Failures.WithLabelValues("pmc", fetch.KindPermanent.String()).Inc()
			o.Failed = append(o.Failed, schedule.FailedEntry{
				ID:     task.ID,
				URL:    task.Record.URL,
				Reason: "article absent from efetch response",
			})
		}
		return o
	}
}

// fetchSummaries returns the indented esummary JSON per UID.
func (h *Harvester) fetchSummaries(ctx context.Context, idParam string) (map[string][]byte, error) {
	q := url.Values{"db": {"pmc"}, "retmode": {"json"}, "id": {idParam}}
	h.auth(q)

	body, err := h.fetcher.Get(ctx, h.Endpoint+"/esummary.fcgi?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &fetch.Error{Kind: fetch.KindUnparseable, Detail: fmt.Sprintf("parsing esummary response: %v", err)}
	}
	delete(parsed.Result, "uids")

	out := make(map[string][]byte, len(parsed.Result))
	for uid, raw := range parsed.Result {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			out[uid] = raw
			continue
		}
		out[uid] = buf.Bytes()
	}
	return out, nil
}

// auth attaches the API key and contact details when configured.
func (h *Harvester) auth(q url.Values) {
	if h.apiKey != "" {
		q.Set("api_key", h.apiKey)
	}
	if h.email != "" {
		q.Set("email", h.email)
		q.Set("tool", "article-harvest")
	}
}

// searchTerm builds the esearch query for one journal and date window.
func searchTerm(journal string, w window.Window) string {
	start, end := windowBounds(w)
	return fmt.Sprintf(`"%s"[Journal] AND ("%s"[PubDate] : "%s"[PubDate])`,
		journal, start.Format("2006/01/02"), end.Format("2006/01/02"))
}

// windowBounds returns the first and last calendar day the window covers.
func windowBounds(w window.Window) (time.Time, time.Time) {
	startMonth, endMonth := w.StartMonth, w.EndMonth
	if startMonth == 0 {
		startMonth, endMonth = 1, 12
	}
	start := time.Date(w.StartYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	// Day zero of the following month is the last day of endMonth.
	end := time.Date(w.EndYear, time.Month(endMonth)+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

// normalizePMCID prefixes bare numeric UIDs; esearch returns them without
// the PMC prefix while the output layout keeps it.
func normalizePMCID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "PMC") {
		return id
	}
	return "PMC" + id
}

// articlePMCID extracts the normalized PMCID from parsed article metadata.
func articlePMCID(meta jats.Meta) string {
	if id := meta.IDs["pmc"]; id != "" {
		return normalizePMCID(id)
	}
	return normalizePMCID(meta.IDs["pmcid"])
}

// monthBucket derives the yyyymm output directory from the article's
// publication dates; unknown dates land in the 000000 bucket.
func monthBucket(dates []jats.PubDate) string {
	d, ok := jats.PreferredDate(dates, pubDatePriority...)
	if !ok {
		return "000000"
	}
	month := d.Month
	if month < 1 || month > 12 {
		month = 0
	}
	return fmt.Sprintf("%04d%02d", d.Year, month)
}

// failBatch marks every task failed with the same cause, stopping the run
// on quota exhaustion.
func failBatch(batch []schedule.Task, err error) schedule.Outcome {
	o := schedule.Outcome{Stop: fetch.IsQuotaExhausted(err)}
	kind := fetch.KindOf(err).String()
	for _, task := range batch {
		metrics.Failures.WithLabelValues("pmc", kind).Inc()
		o.Failed = append(o.Failed, schedule.FailedEntry{
			ID:     task.ID,
			URL:    task.Record.URL,
			Reason: err.Error(),
		})
	}
	return o
}
