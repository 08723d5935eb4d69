// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleSet = `<pmc-articleset>
  <article xmlns:xlink="http://www.w3.org/1999/xlink" article-type="research-article">
    <front><article-meta>
      <article-id pub-id-type="pmc">9000001</article-id>
      <article-id pub-id-type="doi">10.1038/s41586-026-0001-1</article-id>
      <pub-date pub-type="ppub"><month>3</month><year>2026</year></pub-date>
      <pub-date pub-type="epub"><day>5</day><month>1</month><year>2026</year></pub-date>
    </article-meta></front>
    <body><p>full text</p></body>
  </article>
  <article article-type="correction">
    <front><article-meta>
      <article-id pub-id-type="pmc">9000002</article-id>
      <pub-date date-type="collection"><year>2025</year></pub-date>
    </article-meta></front>
  </article>
</pmc-articleset>`

func TestSplitArticlesPreservesElements(t *testing.T) {
	articles, err := SplitArticles([]byte(articleSet))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Contains(t, string(articles[0]), `xmlns:xlink="http://www.w3.org/1999/xlink"`)
	assert.Contains(t, string(articles[0]), "<body><p>full text</p></body>")
	assert.Contains(t, string(articles[1]), `article-type="correction"`)
}

func TestSplitArticlesEmptyResponse(t *testing.T) {
	articles, err := SplitArticles([]byte(`<pmc-articleset></pmc-articleset>`))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestSplitArticlesMalformed(t *testing.T) {
	_, err := SplitArticles([]byte(`<pmc-articleset><article>`))
	assert.Error(t, err)
}

func TestParseMeta(t *testing.T) {
	articles, err := SplitArticles([]byte(articleSet))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	meta, err := ParseMeta(articles[0])
	require.NoError(t, err)
	assert.Equal(t, "9000001", meta.IDs["pmc"])
	assert.Equal(t, "10.1038/s41586-026-0001-1", meta.IDs["doi"])
	assert.True(t, meta.HasBody)
	require.Len(t, meta.PubDates, 2)
	assert.Equal(t, PubDate{Type: "ppub", Year: 2026, Month: 3}, meta.PubDates[0])
	assert.Equal(t, PubDate{Type: "epub", Year: 2026, Month: 1}, meta.PubDates[1])

	meta, err = ParseMeta(articles[1])
	require.NoError(t, err)
	assert.False(t, meta.HasBody)
	require.Len(t, meta.PubDates, 1)
	assert.Equal(t, PubDate{Type: "collection", Year: 2025}, meta.PubDates[0])
}

func TestPreferredDate(t *testing.T) {
	dates := []PubDate{
		{Type: "ppub", Year: 2026, Month: 3},
		{Type: "epub", Year: 2026, Month: 1},
	}

	got, ok := PreferredDate(dates, "epub", "ppub")
	require.True(t, ok)
	assert.Equal(t, 1, got.Month, "epub preferred over ppub")

	got, ok = PreferredDate(dates, "collection")
	require.True(t, ok)
	assert.Equal(t, "ppub", got.Type, "falls back to first dated entry")

	_, ok = PreferredDate(nil, "epub")
	assert.False(t, ok)

	_, ok = PreferredDate([]PubDate{{Type: "epub"}}, "epub")
	assert.False(t, ok, "undated entries are skipped")
}
