// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package elsevier

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// isOpenAccess reports whether an entitlement response marks the article
// open access. The API spells this two ways depending on the journal:
// <status>OPEN_ACCESS</status> inside the entitlement block, or a bare
// <openaccess>1</openaccess> flag. Matching is by local element name, so
// namespace prefixes do not matter.
func isOpenAccess(meta []byte) bool {
	d := xml.NewDecoder(bytes.NewReader(meta))
	var current string
	for {
		tok, err := d.Token()
		if err == io.EOF || err != nil {
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			switch current {
			case "status":
				if text == "OPEN_ACCESS" {
					return true
				}
			case "openaccess":
				if text == "1" || strings.EqualFold(text, "true") {
					return true
				}
			}
		case xml.EndElement:
			current = ""
		}
	}
}

// contentElements are the local names whose presence means the full-text
// response actually carries content rather than an empty shell.
var contentElements = map[string]bool{
	"originalText": true,
	"body":         true,
	"sections":     true,
	"abstract":     true,
}

// hasContent reports whether a full-text response contains any usable
// content element.
func hasContent(full []byte) bool {
	d := xml.NewDecoder(bytes.NewReader(full))
	for {
		tok, err := d.Token()
		if err == io.EOF || err != nil {
			return false
		}
		if se, ok := tok.(xml.StartElement); ok && contentElements[se.Name.Local] {
			return true
		}
	}
}
