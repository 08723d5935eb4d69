// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package window enumerates complete result sets from APIs that silently
// cap the number of results a single query can return. A bounded query
// window is paged until done; if the result count reaches the cap, the
// window is bisected and both halves enumerated, down to single months.
package window

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Window is a bounded query range: whole years when StartMonth is zero,
// otherwise a month range within a single year. Sub-windows produced by
// splitting are disjoint; each recursion owns its own copy.
type Window struct {
	StartYear, EndYear   int
	StartMonth, EndMonth int // 1-12; zero means whole years
}

// String formats the window for logs and query builders.
func (w Window) String() string {
	if w.StartMonth == 0 {
		return fmt.Sprintf("%d:%d", w.StartYear, w.EndYear)
	}
	return fmt.Sprintf("%d/%02d:%d/%02d", w.StartYear, w.StartMonth, w.EndYear, w.EndMonth)
}

// Empty reports whether the window spans nothing.
func (w Window) Empty() bool {
	if w.StartYear > w.EndYear {
		return true
	}
	return w.StartMonth != 0 && w.StartYear == w.EndYear && w.StartMonth > w.EndMonth
}

// atomic reports whether the window cannot be split further (one month).
func (w Window) atomic() bool {
	return w.StartMonth != 0 && w.StartMonth == w.EndMonth
}

// split bisects the window at its midpoint unit. A multi-year window
// splits on years; a whole single year splits into half-years; a month
// range splits at the middle month.
func (w Window) split() (Window, Window) {
	if w.StartMonth == 0 {
		if w.StartYear < w.EndYear {
			mid := (w.StartYear + w.EndYear) / 2
			return Window{StartYear: w.StartYear, EndYear: mid},
				Window{StartYear: mid + 1, EndYear: w.EndYear}
		}
		return Window{StartYear: w.StartYear, EndYear: w.EndYear, StartMonth: 1, EndMonth: 6},
			Window{StartYear: w.StartYear, EndYear: w.EndYear, StartMonth: 7, EndMonth: 12}
	}
	mid := (w.StartMonth + w.EndMonth) / 2
	return Window{StartYear: w.StartYear, EndYear: w.EndYear, StartMonth: w.StartMonth, EndMonth: mid},
		Window{StartYear: w.StartYear, EndYear: w.EndYear, StartMonth: mid + 1, EndMonth: w.EndMonth}
}

// PageFunc fetches one page of identifiers for a window. offset is the
// zero-based cursor into the result set; total is the API's count for the
// whole window. Implementations return the page's identifiers in API order.
type PageFunc func(ctx context.Context, w Window, offset int) (ids []string, total int, err error)

// Enumerate returns every identifier matching the window, splitting the
// window whenever the API's reported count reaches cap. Duplicates across
// sub-window boundaries are removed, first occurrence wins. A single month
// still at the cap is irreducible: its partial results are kept and a
// caveat is logged rather than failing the enumeration. A failed page
// fetch abandons that window's remaining pages but not its siblings.
func Enumerate(ctx context.Context, w Window, cap int, page PageFunc, log zerolog.Logger) ([]string, error) {
	if w.Empty() {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var out []string

	// Explicit work stack instead of recursion: simplifies cancellation
	// and bounds depth. Windows are pushed in reverse so the earlier half
	// is processed first.
	stack := []Window{w}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ids, capped, err := pageWindow(ctx, cur, cap, page)
		if err != nil {
			log.Warn().Stringer("window", cur).Err(err).Msg("window enumeration aborted")
			// Keep what this window yielded before the failure and move
			// on to its siblings.
			for _, id := range ids {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					out = append(out, id)
				}
			}
			continue
		}

		if capped && !cur.atomic() {
			lo, hi := cur.split()
			log.Debug().Stringer("window", cur).Stringer("lo", lo).Stringer("hi", hi).
				Msg("result cap reached, splitting window")
			stack = append(stack, hi, lo)
			continue
		}

		if capped {
			log.Warn().Stringer("window", cur).Int("cap", cap).
				Msg("single month still at result cap; enumeration may be incomplete")
		}

		for _, id := range ids {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}

	return out, nil
}

// pageWindow pulls all pages for one window. capped reports whether the
// API's count reached the cap, in which case the caller decides whether
// to split or accept the partial set.
func pageWindow(ctx context.Context, w Window, cap int, page PageFunc) (ids []string, capped bool, err error) {
	offset := 0
	for {
		pageIDs, total, err := page(ctx, w, offset)
		if err != nil {
			return ids, false, err
		}
		ids = append(ids, pageIDs...)
		offset += len(pageIDs)

		if total >= cap {
			return ids, true, nil
		}
		if offset >= total || len(pageIDs) == 0 {
			return ids, false, nil
		}
	}
}
