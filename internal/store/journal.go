// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	_ "embed"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed journals.yaml
var journalsYAML []byte

// JournalInfo describes one known journal and its canonical spellings.
type JournalInfo struct {
	Abbr     string `yaml:"abbr"`
	FullName string `yaml:"full_name"`
	PathName string `yaml:"path_name"`
}

var journalMap = mustLoadJournals()

func mustLoadJournals() map[string]JournalInfo {
	m := make(map[string]JournalInfo)
	if err := yaml.Unmarshal(journalsYAML, &m); err != nil {
		panic("store: bad embedded journals.yaml: " + err.Error())
	}
	return m
}

// JournalInfoFor looks up a journal by abbreviation, full name, or path
// name, case-insensitively. The second return is false for unknown journals.
func JournalInfoFor(name string) (JournalInfo, bool) {
	if name == "" {
		return JournalInfo{}, false
	}
	lower := strings.ToLower(name)
	if info, ok := journalMap[lower]; ok {
		return info, true
	}
	for _, info := range journalMap {
		if lower == strings.ToLower(info.FullName) || lower == strings.ToLower(info.PathName) {
			return info, true
		}
	}
	return JournalInfo{}, false
}

var (
	nonWordPattern  = regexp.MustCompile(`[^\w\s-]`)
	spaceRunPattern = regexp.MustCompile(`[-\s]+`)
)

// PathSafeJournal sanitizes a journal name into a filesystem-safe path
// component: alias-table path name when known, otherwise non-word
// characters stripped and whitespace/hyphen runs collapsed to underscores.
// Empty or fully-stripped names become "Unknown".
func PathSafeJournal(journal string) string {
	if journal == "" {
		return "Unknown"
	}
	if info, ok := JournalInfoFor(journal); ok {
		return info.PathName
	}
	s := nonWordPattern.ReplaceAllString(journal, "")
	s = spaceRunPattern.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "Unknown"
	}
	return s
}
