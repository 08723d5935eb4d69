// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest orchestrates one downloader run: filter merged records
// for a source, skip everything already on disk, drive the remainder
// through the batch scheduler, and persist what comes back. All shared
// state (store writes, summary counters, catalog inserts) is mutated on
// the orchestrating goroutine only.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/article-harvest/internal/catalog"
	"github.com/pdiddy/article-harvest/internal/metrics"
	"github.com/pdiddy/article-harvest/internal/schedule"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

// Source is one harvesting backend. Implementations fetch and classify
// but never persist: payloads come back inside the batch outcome.
type Source interface {
	// Name identifies the source in logs, metrics, and the catalog.
	Name() string

	// Match reports whether a merged record belongs to this source.
	Match(rec types.Record) bool

	// Prepare derives the fetch task for a matched record. An error means
	// the record lacks the fields needed to schedule it.
	Prepare(rec types.Record) (schedule.Task, error)

	// BatchSize is the number of tasks fetched per request.
	BatchSize() int

	// Fetch processes one batch. It must not touch shared state.
	Fetch(ctx context.Context, batch []schedule.Task) schedule.Outcome
}

// Runner wires a source to the store, scheduler, and run ledger.
type Runner struct {
	Store   *store.Store
	Catalog *catalog.Catalog // optional
	Workers int

	// Limit caps the number of tasks scheduled this run; zero means no cap.
	Limit int

	// FailureLog and NoContentLog are appended to after the run; empty
	// paths disable the respective log.
	FailureLog   string
	NoContentLog string

	Out io.Writer
	Log zerolog.Logger
}

// Run executes one harvest over the merged records and writes the summary
// table to r.Out. The returned summary is complete even when the run
// stopped early on quota exhaustion.
func (r *Runner) Run(ctx context.Context, src Source, records []types.Record) (*schedule.Summary, error) {
	summary := schedule.NewSummary()
	taskByID := make(map[string]schedule.Task)

	var tasks []schedule.Task
	for _, rec := range records {
		summary.Found(rec.Journal)

		if !src.Match(rec) {
			summary.NotMatched(rec.Journal)
			continue
		}

		task, err := src.Prepare(rec)
		if err != nil {
			summary.Unparseable(rec.Journal)
			r.Log.Debug().Str("url", rec.URL).Err(err).Msg("record not schedulable")
			continue
		}

		if _, dup := taskByID[task.ID]; dup {
			summary.Duplicate(rec.Journal)
			continue
		}
		taskByID[task.ID] = task

		if r.satisfied(task) {
			summary.AlreadyExists(rec.Journal)
			continue
		}
		if r.Limit > 0 && len(tasks) >= r.Limit {
			continue
		}

		summary.ToProcess(rec.Journal, task.ID)
		tasks = append(tasks, task)
	}

	r.Log.Info().
		Str("source", src.Name()).
		Int("records", len(records)).
		Int("to_process", len(tasks)).
		Msg("starting harvest")

	return r.RunTasks(ctx, src.Name(), summary, tasks, src.BatchSize(), src.Fetch)
}

// RunTasks executes pre-built tasks through the scheduler and persists the
// outcomes. It serves sources that enumerate their work server-side (PMC)
// instead of filtering merged records; Run funnels through it as well. The
// summary must already carry the pre-scheduling counters.
func (r *Runner) RunTasks(ctx context.Context, source string, summary *schedule.Summary, tasks []schedule.Task, batchSize int, fn schedule.BatchFunc) (*schedule.Summary, error) {
	taskByID := make(map[string]schedule.Task, len(tasks))
	for _, task := range tasks {
		taskByID[task.ID] = task
	}

	handle := func(o schedule.Outcome) {
		r.persist(ctx, source, o, taskByID, summary)
	}
	schedule.Run(ctx, tasks, batchSize, r.Workers, fn, handle, r.Log)

	if err := r.finish(summary); err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

// persist writes one outcome's payloads, reclassifying identifiers whose
// writes fail, then folds the adjusted outcome into the summary and ledger.
func (r *Runner) persist(ctx context.Context, source string, o schedule.Outcome, taskByID map[string]schedule.Task, summary *schedule.Summary) {
	writeFailed := make(map[string]string) // id → reason
	pathByID := make(map[string]string)

	for _, f := range o.Files {
		err := r.Store.Write(f.Path, f.Payload)
		switch {
		case err == nil, errors.Is(err, store.ErrExists):
			if _, ok := pathByID[f.ID]; !ok {
				pathByID[f.ID] = f.Path
			}
		default:
			writeFailed[f.ID] = fmt.Sprintf("write: %v", err)
			r.Log.Error().Str("path", f.Path).Err(err).Msg("persisting payload")
		}
	}

	adjusted := schedule.Outcome{
		Failed:    o.Failed,
		NoContent: o.NoContent,
		Stop:      o.Stop,
	}
	for _, id := range o.Succeeded {
		if reason, bad := writeFailed[id]; bad {
			task := taskByID[id]
			adjusted.Failed = append(adjusted.Failed, schedule.FailedEntry{
				ID:     id,
				URL:    task.Record.URL,
				DOI:    task.Record.DOI,
				Reason: reason,
			})
			continue
		}
		adjusted.Succeeded = append(adjusted.Succeeded, id)
		metrics.RecordsSaved.WithLabelValues(source).Inc()

		if r.Catalog != nil {
			task := taskByID[id]
			err := r.Catalog.Insert(ctx, catalog.Entry{
				ID:      id,
				Source:  source,
				URL:     task.Record.URL,
				DOI:     task.Record.DOI,
				Journal: task.Record.Journal,
				Path:    pathByID[id],
			})
			if err != nil {
				r.Log.Warn().Str("id", id).Err(err).Msg("catalog insert failed")
			}
		}
	}

	summary.Absorb(adjusted)
}

// finish flushes the operator logs and prints the run table.
func (r *Runner) finish(summary *schedule.Summary) error {
	if err := AppendFailureLog(r.FailureLog, summary.Failures); err != nil {
		return err
	}
	if err := AppendNoContentLog(r.NoContentLog, summary.NoContentIDs); err != nil {
		return err
	}
	if r.Out != nil {
		summary.FormatTable(r.Out)
	}
	return nil
}

// satisfied reports whether every known output path of a task exists.
// Tasks with no pre-known paths are never satisfied up front.
func (r *Runner) satisfied(task schedule.Task) bool {
	if len(task.Paths) == 0 {
		return false
	}
	for _, p := range task.Paths {
		if !r.Store.Exists(p) {
			return false
		}
	}
	return true
}
