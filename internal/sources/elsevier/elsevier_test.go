// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package elsevier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/article-harvest/internal/schedule"
	"github.com/pdiddy/article-harvest/internal/store"
	"github.com/pdiddy/article-harvest/pkg/types"
)

const (
	openMeta = `<full-text-retrieval-response xmlns="http://www.elsevier.com/xml/svapi/article/dtd">
  <coredata><openaccess>1</openaccess></coredata>
  <document-entitlement><status>OPEN_ACCESS</status></document-entitlement>
</full-text-retrieval-response>`

	closedMeta = `<full-text-retrieval-response>
  <coredata><openaccess>0</openaccess></coredata>
  <document-entitlement><status>ENTITLED</status></document-entitlement>
</full-text-retrieval-response>`

	fullText = `<full-text-retrieval-response>
  <originalText><xocs:doc>the article</xocs:doc></originalText>
</full-text-retrieval-response>`

	emptyFull = `<full-text-retrieval-response>
  <coredata/>
</full-text-retrieval-response>`
)

func newTestSource(t *testing.T, handler http.Handler, force bool) (*Source, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st := store.New(t.TempDir(), false)
	cfg := types.HarvestConfig{Force: force}
	cfg.Fetch.BaseDelay = time.Millisecond
	src := New(cfg, "els-key", st, zerolog.Nop())
	src.Endpoint = srv.URL
	return src, st
}

func cellRecord() types.Record {
	return types.Record{
		URL:     "https://www.cell.com/immunity/fulltext/S1074-7613(26)00001-2",
		Journal: "Immunity",
		Date:    "2026-03-01",
	}
}

func TestMatch(t *testing.T) {
	src := &Source{}
	assert.True(t, src.Match(types.Record{URL: "https://www.cell.com/immunity/fulltext/S1074-7613(26)00001-2"}))
	assert.True(t, src.Match(types.Record{URL: "https://www.sciencedirect.com/science/article/pii/S1074761326000012"}))
	assert.False(t, src.Match(types.Record{URL: "https://www.nature.com/articles/s41586-026-0001-1"}))
}

func TestPrepare(t *testing.T) {
	st := store.New(t.TempDir(), false)
	src := &Source{store: st}

	task, err := src.Prepare(cellRecord())
	require.NoError(t, err)
	assert.Equal(t, "S1074761326000012", task.ID)
	require.Len(t, task.Paths, 1)
	assert.Equal(t, st.MetaPathFor(cellRecord(), task.ID, "xml"), task.Paths[0])
	assert.True(t, strings.HasSuffix(task.Paths[0], "S1074761326000012_meta.xml"))

	_, err = src.Prepare(types.Record{URL: "https://www.cell.com/immunity/newsroom"})
	assert.Error(t, err)
}

func TestFetchOpenAccess(t *testing.T) {
	var views []string
	var gotKey string
	src, st := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		views = append(views, r.URL.Query().Get("view"))
		gotKey = r.Header.Get("X-ELS-APIKey")
		require.True(t, strings.HasSuffix(r.URL.Path, "/S1074761326000012"))
		if r.URL.Query().Get("view") == viewEntitled {
			w.Write([]byte(openMeta))
			return
		}
		w.Write([]byte(fullText))
	}), false)

	task, err := src.Prepare(cellRecord())
	require.NoError(t, err)

	o := src.Fetch(context.Background(), []schedule.Task{task})

	assert.Equal(t, []string{viewEntitled, viewFull}, views)
	assert.Equal(t, "els-key", gotKey)
	require.Len(t, o.Succeeded, 1)
	require.Len(t, o.Files, 2, "metadata companion plus full text")

	assert.Equal(t, task.Paths[0], o.Files[0].Path)
	assert.Equal(t, openMeta, string(o.Files[0].Payload))
	assert.Equal(t, st.PathFor(task.Record, task.ID, "xml"), o.Files[1].Path)
	assert.Equal(t, fullText, string(o.Files[1].Payload))
}

func TestFetchClosedAccessKeepsMetadataOnly(t *testing.T) {
	var calls int
	src, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(closedMeta))
	}), false)

	task, err := src.Prepare(cellRecord())
	require.NoError(t, err)

	o := src.Fetch(context.Background(), []schedule.Task{task})

	assert.Equal(t, 1, calls, "no full-text request for closed access")
	require.Len(t, o.Succeeded, 1)
	require.Len(t, o.Files, 1)
	assert.Equal(t, task.Paths[0], o.Files[0].Path)
	assert.Empty(t, o.NoContent)
}

func TestFetchForceAttemptsClosedAccess(t *testing.T) {
	var views []string
	src, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		views = append(views, r.URL.Query().Get("view"))
		if r.URL.Query().Get("view") == viewEntitled {
			w.Write([]byte(closedMeta))
			return
		}
		w.Write([]byte(fullText))
	}), true)

	task, err := src.Prepare(cellRecord())
	require.NoError(t, err)

	o := src.Fetch(context.Background(), []schedule.Task{task})

	assert.Equal(t, []string{viewEntitled, viewFull}, views)
	require.Len(t, o.Succeeded, 1)
	assert.Len(t, o.Files, 2)
}

func TestFetchEmptyFullTextIsNoContent(t *testing.T) {
	src, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("view") == viewEntitled {
			w.Write([]byte(openMeta))
			return
		}
		w.Write([]byte(emptyFull))
	}), false)

	task, err := src.Prepare(cellRecord())
	require.NoError(t, err)

	o := src.Fetch(context.Background(), []schedule.Task{task})

	assert.Empty(t, o.Succeeded)
	require.Len(t, o.NoContent, 1)
	assert.Equal(t, task.ID, o.NoContent[0])
	require.Len(t, o.Files, 1, "metadata companion is still kept")
}

func TestFetchQuotaExhaustionStopsBatch(t *testing.T) {
	src, _ := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(2*time.Hour).Unix(), 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}), false)

	first, err := src.Prepare(cellRecord())
	require.NoError(t, err)
	second := first
	second.ID = "S1074761326000023"

	o := src.Fetch(context.Background(), []schedule.Task{first, second})

	assert.True(t, o.Stop)
	require.Len(t, o.Failed, 2)
	assert.Contains(t, o.Failed[0].Reason, "quota exhausted")
	assert.Equal(t, schedule.StoppedReason, o.Failed[1].Reason)
}

func TestCompactPII(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.cell.com/immunity/fulltext/S1074-7613(26)00001-2", "S1074761326000012"},
		{"https://www.cell.com/immunity/fulltext/S1074-7613(26)00001-2?rss=yes", "S1074761326000012"},
		{"https://www.sciencedirect.com/science/article/pii/S1074761326000012", "S1074761326000012"},
		{"https://www.cell.com/immunity/fulltext/s0092-8674(25)01234-x", "S009286742501234X"},
		{"https://www.cell.com/immunity/newsroom", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, compactPII(tc.url), tc.url)
	}
}

func TestIsOpenAccess(t *testing.T) {
	assert.True(t, isOpenAccess([]byte(openMeta)))
	assert.False(t, isOpenAccess([]byte(closedMeta)))
	assert.False(t, isOpenAccess([]byte("not xml at all")))
	assert.True(t, isOpenAccess([]byte(`<r><openaccess>true</openaccess></r>`)))
}

func TestHasContent(t *testing.T) {
	assert.True(t, hasContent([]byte(fullText)))
	assert.False(t, hasContent([]byte(emptyFull)))
	assert.True(t, hasContent([]byte(`<r><ce:sections xmlns:ce="http://x"><ce:para/></ce:sections></r>`)))
	assert.True(t, hasContent([]byte(`<r><abstract>a</abstract></r>`)))
}
