// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule drives batches of fetch tasks to completion over a
// bounded worker pool. Workers report outcomes by return value and never
// touch shared state; the orchestrating goroutine consumes outcomes in
// completion order, persists payloads, and updates the run summary, so no
// locking is needed anywhere.
package schedule

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/article-harvest/pkg/types"
)

// StoppedReason marks tasks never dispatched because a quota-exhaustion
// stop arrived first. Operators use it to tell "not attempted this run"
// apart from ordinary fetch failures.
const StoppedReason = "stopped: quota exhausted"

// Task is one unit of work: a record plus the output paths its payload
// will land in. Tasks are immutable once created and consumed exactly once.
type Task struct {
	// ID is the stable identifier derived from the record's source URL.
	ID string

	// Record is the merged metadata record backing this task.
	Record types.Record

	// Paths lists the output files this task is expected to produce, when
	// they are known before fetching. Sources that derive paths from the
	// fetched payload (PMC) leave it empty.
	Paths []string
}

// FailedEntry records one task that permanently failed, for the failure log.
type FailedEntry struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
	DOI    string `json:"doi,omitempty"`
	Reason string `json:"reason"`
}

// File is one payload a batch produced, to be persisted by the
// orchestrator. ID links it back to its task for bookkeeping.
type File struct {
	ID      string
	Path    string
	Payload []byte
}

// Outcome is the result of one batch. Workers only fetch and classify;
// persistence of Files happens on the orchestrator goroutine. Stop signals
// quota exhaustion: the scheduler dispatches no further batches.
type Outcome struct {
	// Files holds payloads awaiting persistence, possibly several per
	// identifier (metadata companion plus full text).
	Files []File

	// Succeeded lists identifiers the batch completed, including ones
	// satisfied without a new payload (e.g. closed-access metadata-only).
	Succeeded []string

	Failed    []FailedEntry
	NoContent []string
	Stop      bool
}

// BatchFunc processes one batch of tasks through the source's fetcher,
// returning the per-batch outcome. It must not touch shared state.
type BatchFunc func(ctx context.Context, batch []Task) Outcome

// Run partitions tasks into batches of batchSize, executes them over
// workers concurrent workers, and invokes handle on the calling goroutine
// for every outcome in completion order. When an outcome carries Stop, no
// new batches are dispatched; batches already in flight finish and their
// outcomes are still handled. Tasks never dispatched are reported through
// handle as failed with StoppedReason.
func Run(ctx context.Context, tasks []Task, batchSize, workers int, fn BatchFunc, handle func(Outcome), log zerolog.Logger) {
	if len(tasks) == 0 {
		return
	}
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = 1
	}

	var batches [][]Task
	for i := 0; i < len(tasks); i += batchSize {
		end := i + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batches = append(batches, tasks[i:end])
	}

	jobs := make(chan []Task)
	outcomes := make(chan Outcome, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for batch := range jobs {
				// An in-flight batch runs to completion even after a stop;
				// only dispatch observes the stop.
				outcomes <- fn(gctx, batch)
			}
			return nil
		})
	}

	stopped := false
	next := 0
	inFlight := 0

	// Prime one batch per worker, then dispatch one-in-one-out. Handling
	// every outcome before the next dispatch guarantees a stop halts
	// dispatch within one completion cycle.
	for inFlight < workers && next < len(batches) {
		jobs <- batches[next]
		next++
		inFlight++
	}
	for inFlight > 0 {
		o := <-outcomes
		inFlight--
		if o.Stop && !stopped {
			stopped = true
			log.Warn().Msg("quota exhausted, stopping batch dispatch")
		}
		handle(o)
		if !stopped && next < len(batches) {
			jobs <- batches[next]
			next++
			inFlight++
		}
	}
	close(jobs)
	g.Wait()

	// Batches never dispatched because of the stop.
	if next < len(batches) {
		var skipped Outcome
		for ; next < len(batches); next++ {
			for _, t := range batches[next] {
				skipped.Failed = append(skipped.Failed, FailedEntry{
					ID:     t.ID,
					URL:    t.Record.URL,
					DOI:    t.Record.DOI,
					Reason: StoppedReason,
				})
			}
		}
		handle(skipped)
	}
}
