// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rss

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var (
	doiPattern        = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:A-Z0-9]+`)
	summaryDOIPattern = regexp.MustCompile(`(?i)doi:(10\.\d{4,9}/[-._;()/:A-Z0-9]+)`)

	// naturePublishedPattern matches the "Published online: 23 February 2026"
	// line Nature embeds in its entry summaries.
	naturePublishedPattern = regexp.MustCompile(`Published online: (\d{1,2} \w+ \d{4})`)

	// scienceMonthPattern matches the bare "February 2026" Science summaries
	// carry when no structured date is present.
	scienceMonthPattern = regexp.MustCompile(`([A-Z][a-z]+ \d{4})`)
)

// extractDOI pulls the DOI out of a feed entry, trying the publisher
// extension fields first and falling back to pattern matching on the link
// and summary.
func extractDOI(item *gofeed.Item) string {
	if prism, ok := item.Extensions["prism"]; ok {
		if dois, ok := prism["doi"]; ok && len(dois) > 0 && dois[0].Value != "" {
			return dois[0].Value
		}
	}

	if dc := item.DublinCoreExt; dc != nil && len(dc.Identifier) > 0 {
		id := dc.Identifier[0]
		if strings.HasPrefix(strings.ToLower(id), "doi:") {
			return id[4:]
		}
		if id != "" {
			return id
		}
	}

	for _, field := range []string{item.Link, item.GUID} {
		if m := doiPattern.FindString(field); m != "" {
			return m
		}
	}

	if m := summaryDOIPattern.FindStringSubmatch(item.Description); m != nil {
		return m[1]
	}
	return ""
}

// extractDate picks the best available date for a feed entry. Structured
// fields win; Nature and Science summaries get journal-specific fallbacks.
func extractDate(item *gofeed.Item, journal string) string {
	if item.Updated != "" {
		// Some feeds give YYYY-MM-DD, some YYYY-MM-DDTHH:MM:SSZ.
		date, _, _ := strings.Cut(item.Updated, "T")
		return date
	}
	if item.Published != "" {
		return item.Published
	}

	if strings.HasPrefix(journal, "Nature") {
		if m := naturePublishedPattern.FindStringSubmatch(item.Description); m != nil {
			return m[1]
		}
	}
	if journal == "Science" {
		if m := scienceMonthPattern.FindStringSubmatch(item.Description); m != nil {
			return m[1]
		}
	}
	return ""
}
