// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnknownYear is the sentinel bucket for records whose date yields no
// recoverable year. Such records are stored, not failed.
const UnknownYear = "0000"

// dateFormats is the prioritized list of layouts publication dates appear
// in across sources. First match wins; "Jan 2006" is deliberately tried
// before the day-carrying variants.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"Jan 02, 2006",
	"Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ParsePublicationDate parses a free-text publication date against the
// prioritized format list. The second return is false when no layout matches.
func ParsePublicationDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// YearFromDate extracts the year bucket from a free-text date: parsed year
// when a layout matches, any plausible 4-digit year substring otherwise,
// UnknownYear as the last resort.
func YearFromDate(dateStr string) string {
	if dateStr == "" {
		return UnknownYear
	}
	if t, ok := ParsePublicationDate(dateStr); ok {
		return strconv.Itoa(t.Year())
	}
	if m := yearPattern.FindString(dateStr); m != "" {
		return m
	}
	return UnknownYear
}
