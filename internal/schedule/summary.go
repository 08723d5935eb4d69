// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schedule

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Row holds the per-journal counters reported at process exit.
type Row struct {
	Found         int
	Duplicate     int
	NotMatched    int
	Unparseable   int
	AlreadyExists int
	ToProcess     int
	Saved         int
	Failed        int
	NoContent     int
}

// Summary is the write-once run accumulator. It is owned by the
// orchestrating goroutine; workers never touch it.
type Summary struct {
	rows        map[string]*Row
	journalByID map[string]string

	// Failures collects entries for the failure log.
	Failures []FailedEntry

	// NoContentIDs collects identifiers for the no-content log.
	NoContentIDs []string

	// Stopped reports whether the run ended on quota exhaustion.
	Stopped bool
}

// NewSummary returns an empty run summary.
func NewSummary() *Summary {
	return &Summary{
		rows:        make(map[string]*Row),
		journalByID: make(map[string]string),
	}
}

func (s *Summary) row(journal string) *Row {
	if journal == "" {
		journal = "Unknown"
	}
	r, ok := s.rows[journal]
	if !ok {
		r = &Row{}
		s.rows[journal] = r
	}
	return r
}

// Found counts a merged record attributed to journal.
func (s *Summary) Found(journal string) { s.row(journal).Found++ }

// Duplicate counts a record dropped as a within-run duplicate.
func (s *Summary) Duplicate(journal string) { s.row(journal).Duplicate++ }

// NotMatched counts a record that belongs to a different source.
func (s *Summary) NotMatched(journal string) { s.row(journal).NotMatched++ }

// Unparseable counts a record lacking the fields needed to schedule it.
func (s *Summary) Unparseable(journal string) { s.row(journal).Unparseable++ }

// AlreadyExists counts a record skipped because its output path exists.
func (s *Summary) AlreadyExists(journal string) { s.row(journal).AlreadyExists++ }

// ToProcess registers a scheduled task so later outcomes can be
// attributed back to its journal.
func (s *Summary) ToProcess(journal, id string) {
	s.row(journal).ToProcess++
	s.journalByID[id] = journal
}

// Fail records one failed task.
func (s *Summary) Fail(journal string, e FailedEntry) {
	s.row(journal).Failed++
	s.Failures = append(s.Failures, e)
}

// Absorb merges one batch outcome into the summary.
func (s *Summary) Absorb(o Outcome) {
	for _, id := range o.Succeeded {
		s.row(s.journalByID[id]).Saved++
	}
	for _, e := range o.Failed {
		s.row(s.journalByID[e.ID]).Failed++
		s.Failures = append(s.Failures, e)
	}
	for _, id := range o.NoContent {
		s.row(s.journalByID[id]).NoContent++
		s.NoContentIDs = append(s.NoContentIDs, id)
	}
	if o.Stop {
		s.Stopped = true
	}
}

// Totals sums the counters across journals.
func (s *Summary) Totals() Row {
	var t Row
	for _, r := range s.rows {
		t.Found += r.Found
		t.Duplicate += r.Duplicate
		t.NotMatched += r.NotMatched
		t.Unparseable += r.Unparseable
		t.AlreadyExists += r.AlreadyExists
		t.ToProcess += r.ToProcess
		t.Saved += r.Saved
		t.Failed += r.Failed
		t.NoContent += r.NoContent
	}
	return t
}

// FormatTable writes the per-journal stats table to w.
func (s *Summary) FormatTable(w io.Writer) {
	fmt.Fprintf(w, "%-40s %-7s %-7s %-7s %-7s %-7s %-7s\n",
		"Journal", "Found", "ToProc", "Saved", "Failed", "Exists", "NoBody")
	fmt.Fprintln(w, strings.Repeat("-", 92))

	journals := make([]string, 0, len(s.rows))
	for j := range s.rows {
		journals = append(journals, j)
	}
	sort.Strings(journals)

	for _, j := range journals {
		r := s.rows[j]
		name := j
		if len(name) > 39 {
			name = name[:39]
		}
		fmt.Fprintf(w, "%-40s %-7d %-7d %-7d %-7d %-7d %-7d\n",
			name, r.Found, r.ToProcess, r.Saved, r.Failed, r.AlreadyExists, r.NoContent)
	}

	t := s.Totals()
	fmt.Fprintln(w, strings.Repeat("-", 92))
	fmt.Fprintf(w, "  Total saved:   %d\n", t.Saved)
	fmt.Fprintf(w, "  No content:    %d\n", t.NoContent)
	fmt.Fprintf(w, "  Failures:      %d\n", t.Failed)
	fmt.Fprintf(w, "  Already exist: %d\n", t.AlreadyExists)
	if s.Stopped {
		fmt.Fprintln(w, "  Run stopped early: quota exhausted")
	}
}
