// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the article-harvest pipeline.
package types

// Record is one canonical bibliographic entry merged from one or more
// metadata files. Different sources name the same concept differently
// (publicationDate vs pubdate vs date); the merge stage normalizes them
// into this shape. URL is the merge key and must be non-empty for a
// record to participate in a harvest run.
type Record struct {
	// Title is the article title as reported by the source.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Journal is the journal name, either from the record itself or
	// inherited from the metadata file's top-level default.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Date is the free-text publication date. Multiple formats occur in
	// the wild; the store parses it against a prioritized format list.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	// Author is the free-text author line.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// URL is the canonical article URL and the deduplication key.
	URL string `json:"url" yaml:"url"`

	// DOI is the digital object identifier, when known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// HasDate reports whether the record carries its own publication date.
func (r Record) HasDate() bool { return r.Date != "" }
