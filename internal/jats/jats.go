// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jats handles the JATS article XML served by both the Springer
// Nature API and PMC efetch: splitting multi-article responses into
// verbatim per-article payloads and pulling out the identifiers the
// harvest needs to route them.
package jats

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PubDate is one dated publication event of an article. Type carries the
// pub-type or date-type attribute value ("epub", "ppub", ...).
type PubDate struct {
	Type  string
	Year  int
	Month int
}

// Meta is what the harvest needs from one article element.
type Meta struct {
	// IDs maps pub-id-type to the identifier value ("doi", "pmc",
	// "publisher-id", ...).
	IDs map[string]string

	// HasBody reports whether the article carries full text.
	HasBody bool

	// PubDates lists the article's publication dates in document order.
	PubDates []PubDate
}

// SplitArticles returns the verbatim bytes of every <article> element in a
// multi-article response. Byte offsets from the token stream preserve each
// element exactly as served, attributes and namespaces included.
func SplitArticles(data []byte) ([][]byte, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var out [][]byte
	for {
		start := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "article" {
			continue
		}
		if err := d.Skip(); err != nil {
			return nil, fmt.Errorf("reading article element: %w", err)
		}
		out = append(out, data[start:d.InputOffset()])
	}
}

// ParseMeta extracts identifiers, body presence, and publication dates
// from one article element. Matching is by local name, so namespace
// prefixes do not matter.
func ParseMeta(raw []byte) (Meta, error) {
	var parsed struct {
		IDs []struct {
			Type  string `xml:"pub-id-type,attr"`
			Value string `xml:",chardata"`
		} `xml:"front>article-meta>article-id"`
		Dates []struct {
			PubType  string `xml:"pub-type,attr"`
			DateType string `xml:"date-type,attr"`
			Year     string `xml:"year"`
			Month    string `xml:"month"`
		} `xml:"front>article-meta>pub-date"`
		Body *struct{} `xml:"body"`
	}
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return Meta{}, err
	}

	meta := Meta{
		IDs:     make(map[string]string, len(parsed.IDs)),
		HasBody: parsed.Body != nil,
	}
	for _, id := range parsed.IDs {
		meta.IDs[id.Type] = strings.TrimSpace(id.Value)
	}
	for _, d := range parsed.Dates {
		typ := d.PubType
		if typ == "" {
			typ = d.DateType
		}
		year, _ := strconv.Atoi(strings.TrimSpace(d.Year))
		month, _ := strconv.Atoi(strings.TrimSpace(d.Month))
		meta.PubDates = append(meta.PubDates, PubDate{Type: typ, Year: year, Month: month})
	}
	return meta, nil
}

// PreferredDate picks the publication date whose type appears earliest in
// priority, falling back to the first dated entry.
func PreferredDate(dates []PubDate, priority ...string) (PubDate, bool) {
	for _, want := range priority {
		for _, d := range dates {
			if d.Type == want && d.Year != 0 {
				return d, true
			}
		}
	}
	for _, d := range dates {
		if d.Year != 0 {
			return d, true
		}
	}
	return PubDate{}, false
}
