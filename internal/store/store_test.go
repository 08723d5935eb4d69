// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/article-harvest/pkg/types"
)

func TestPathForIsStable(t *testing.T) {
	s := New("/data/springer", false)
	rec := types.Record{
		URL:     "https://www.nature.com/articles/s41586-025-01234-5",
		Journal: "Nature",
		Date:    "2025-03-14",
	}

	p1 := s.PathFor(rec, "s41586-025-01234-5", "xml")
	p2 := s.PathFor(rec, "s41586-025-01234-5", "xml")
	assert.Equal(t, p1, p2, "path derivation must be deterministic")
	assert.Equal(t, filepath.Join("/data/springer", "2025", "Nature", "s41586-025-01234-5.xml"), p1)
}

func TestPathForUnknownYearSentinel(t *testing.T) {
	s := New("out", false)
	rec := types.Record{URL: "http://x/1", Journal: "Nature", Date: "sometime soon"}
	p := s.PathFor(rec, "abc", "xml")
	assert.Equal(t, filepath.Join("out", "0000", "Nature", "abc.xml"), p)
}

func TestPathForEmptyIdentifier(t *testing.T) {
	s := New("out", false)
	assert.Empty(t, s.PathFor(types.Record{URL: "http://x/1"}, "", "xml"))
}

func TestPathForSanitizesIdentifier(t *testing.T) {
	s := New("out", false)
	rec := types.Record{Journal: "Cell", Date: "2024-01-01"}
	p := s.PathFor(rec, "10.1016/j.cell.2024.01.001", "xml")
	assert.Equal(t, filepath.Join("out", "2024", "Cell", "10.1016_j.cell.2024.01.001.xml"), p)
}

func TestMetaPathFor(t *testing.T) {
	s := New("out", false)
	rec := types.Record{Journal: "Cell", Date: "2024-06-05"}
	assert.Equal(t,
		filepath.Join("out", "2024", "Cell", "S0092_meta.xml"),
		s.MetaPathFor(rec, "S0092", "xml"))
}

func TestWriteCreatesParentsAndRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, false)
	path := filepath.Join(dir, "2024", "Nature", "a1.xml")

	require.NoError(t, s.Write(path, []byte("<article/>")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<article/>", string(data))

	// Second write refuses and leaves the original intact.
	err = s.Write(path, []byte("<other/>"))
	assert.ErrorIs(t, err, ErrExists)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "<article/>", string(data))
}

func TestWriteForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, true)
	path := filepath.Join(dir, "a1.xml")

	require.NoError(t, s.Write(path, []byte("v1")))
	require.NoError(t, s.Write(path, []byte("v2")))
	data, _ := os.ReadFile(path)
	assert.Equal(t, "v2", string(data))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, false)
	require.NoError(t, s.Write(filepath.Join(dir, "a.xml"), []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.xml", entries[0].Name())
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, false)
	path := filepath.Join(dir, "x.xml")

	assert.False(t, s.Exists(path))
	assert.False(t, s.Exists(""))
	require.NoError(t, s.Write(path, []byte("x")))
	assert.True(t, s.Exists(path))
}

func TestYearFromDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-02-07", "2026"},
		{"2026/02/07", "2026"},
		{"2026.02.07", "2026"},
		{"Jan 06, 2022", "2022"},
		{"Mar 2024", "2024"},
		{"5 Mar 2024", "2024"},
		{"14 February 2023", "2023"},
		{"Published online 2021, maybe", "2021"},
		{"volume 1999 issue 4", "1999"},
		{"", "0000"},
		{"no year here", "0000"},
		{"year 3024", "0000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, YearFromDate(tt.in))
		})
	}
}

func TestParsePublicationDateAmbiguity(t *testing.T) {
	// "Mar 2024" must hit the month-year layout, not a day variant.
	tm, ok := ParsePublicationDate("Mar 2024")
	require.True(t, ok)
	assert.Equal(t, 2024, tm.Year())
	assert.Equal(t, 3, int(tm.Month()))

	_, ok = ParsePublicationDate("not a date")
	assert.False(t, ok)
}

func TestPathSafeJournal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nature", "Nature"},
		{"nature", "Nature"},
		{"ni", "Nature_Immunology"},
		{"Nature Immunology", "Nature_Immunology"},
		{"immunity", "Cell_Immunity"},
		{"Cell_Immunity", "Cell_Immunity"},
		{"Science Immunology", "Science_Immunology"},
		{"Proc Natl Acad Sci U S A", "Proc_Natl_Acad_Sci_U_S_A"},
		{"Nature — Reviews: Immunology!", "Nature_Reviews_Immunology"},
		{"", "Unknown"},
		{"???", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PathSafeJournal(tt.in))
		})
	}
}

func TestJournalInfoFor(t *testing.T) {
	info, ok := JournalInfoFor("Science Immunology")
	require.True(t, ok)
	assert.Equal(t, "sciimmunol", info.Abbr)

	_, ok = JournalInfoFor("Journal of Irreproducible Results")
	assert.False(t, ok)
}
