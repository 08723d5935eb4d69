// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store maps records to deterministic output locations and
// performs idempotent writes. For a given source URL the derived path is
// stable across runs, so re-running a partially failed harvest skips
// everything already persisted without a network call.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/article-harvest/pkg/types"
)

// ErrExists is returned by Write when the destination already exists and
// the store was not forced. Callers treat it as already-satisfied.
var ErrExists = errors.New("output file already exists")

// Store writes harvested payloads under a root directory using the
// <root>/<year>/<journal>/<identifier>[.ext] layout.
type Store struct {
	root  string
	force bool
}

// New returns a store rooted at root. When force is set, Write overwrites
// existing files instead of refusing.
func New(root string, force bool) *Store {
	return &Store{root: root, force: force}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// PathFor derives the output path for a record given its extracted
// identifier and the file extension (without dot). The year bucket comes
// from the record's free-text date, "0000" when no year is recoverable;
// the journal component is sanitized through the alias table.
func (s *Store) PathFor(rec types.Record, identifier, ext string) string {
	if identifier == "" {
		return ""
	}
	year := YearFromDate(rec.Date)
	journal := PathSafeJournal(rec.Journal)
	name := sanitizeComponent(identifier)
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(s.root, year, journal, name)
}

// MetaPathFor derives the companion metadata path (<identifier>_meta.<ext>)
// next to the record's payload file.
func (s *Store) MetaPathFor(rec types.Record, identifier, ext string) string {
	if identifier == "" {
		return ""
	}
	return s.PathFor(rec, identifier+"_meta", ext)
}

// Exists reports whether path is already present on disk.
func (s *Store) Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Write persists payload at path, creating parent directories as needed.
// The payload lands in a temp file first and is renamed into place, so a
// crash never leaves a truncated output file. Without force, an existing
// destination returns ErrExists and the payload is discarded.
func (s *Store) Write(path string, payload []byte) error {
	if path == "" {
		return fmt.Errorf("empty output path")
	}
	if !s.force && s.Exists(path) {
		return ErrExists
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".harvest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(payload)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing payload: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// sanitizeComponent makes an identifier safe as a single path component.
func sanitizeComponent(id string) string {
	out := []rune(id)
	for i, r := range out {
		if r == '/' || r == '\\' {
			out[i] = '_'
		}
	}
	return string(out)
}
