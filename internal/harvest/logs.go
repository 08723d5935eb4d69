// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pdiddy/article-harvest/internal/schedule"
)

// AppendFailureLog appends one JSON line per failed entry to path. The log
// is consumed by operators, not by the pipeline, so it is append-only and
// never rewritten.
func AppendFailureLog(path string, entries []schedule.FailedEntry) error {
	if path == "" || len(entries) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening failure log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("writing failure log: %w", err)
		}
	}
	return nil
}

// AppendNoContentLog appends one identifier per line to path, sorted for
// stable diffs between runs.
func AppendNoContentLog(path string, ids []string) error {
	if path == "" || len(ids) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening no-content log: %w", err)
	}
	defer f.Close()

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if _, err := fmt.Fprintln(f, id); err != nil {
			return fmt.Errorf("writing no-content log: %w", err)
		}
	}
	return nil
}
