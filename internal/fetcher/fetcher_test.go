package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const articlePage = `<html><head><title>T</title><script>var x = 1;</script></head>
<body>
<nav><a href="/home">Home page of the site navigation</a></nav>
<main>
<h1>Release notes</h1>
<h2>What changed this week</h2>
<p>The scheduler now retries failed jobs with exponential backoff.</p>
<p>short</p>
<ul><li>Memory usage dropped by a third on large inputs.</li></ul>
</main>
</body></html>`

const newsPage = `<html><body>
<header><a href="/a">Header link that is long enough to count</a></header>
<a href="/story/1">Markets rally after central bank decision</a>
<a href="https://other.example/story/2">Storm closes schools across the region for two days</a>
<a href="/story/3">markets rally after central bank decision</a>
<a href="/tag/economy">Economy tag page with a long title</a>
<a href="#top">Back to the top of this page please</a>
<a href="/story/4">Too short</a>
</body></html>`

func newFetcher(reader string) *Fetcher {
	return New(Config{ReaderURL: reader}, zap.NewNop())
}

func TestReadPage_ParsesHTMLWhenReaderFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/reader/") {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	f := newFetcher(srv.URL + "/reader/")
	out, err := f.ReadPage(context.Background(), srv.URL+"/post")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "=== WEB CONTENT ===\nSource: "+srv.URL+"/post\n---\n# Release notes\n"))
	assert.Contains(t, out, "### What changed this week")
	assert.Contains(t, out, "exponential backoff.")
	assert.Contains(t, out, "Memory usage dropped")
	assert.NotContains(t, out, "short\n")
	assert.NotContains(t, out, "var x")
	assert.True(t, strings.HasSuffix(out, "\n=== END CONTENT ==="))
}

func TestReadPage_UsesReaderAndTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 500)))
	}))
	defer srv.Close()

	f := New(Config{ReaderURL: srv.URL + "/", MaxChars: 200}, zap.NewNop())
	out, err := f.ReadPage(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Source: https://example.com\n")
	assert.Contains(t, out, strings.Repeat("a", 200)+"\n\n[...Content Truncated...]")
}

func TestReadPage_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>tiny</p></body></html>"))
	}))
	defer srv.Close()

	_, err := newFetcher("").ReadPage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(newsPage))
	}))
	defer srv.Close()

	out, err := newFetcher("").Headlines(context.Background(), srv.URL, 10)
	require.NoError(t, err)

	want := "=== NEWS HEADLINES from " + srv.URL + " ===\n\n" +
		"1. **Storm closes schools across the region for two days**\n   🔗 https://other.example/story/2\n\n" +
		"2. **Markets rally after central bank decision**\n   🔗 " + srv.URL + "/story/1\n\n"
	assert.Equal(t, want, out)

	out, err = newFetcher("").Headlines(context.Background(), srv.URL, 1)
	require.NoError(t, err)
	assert.NotContains(t, out, "Markets")
}

func TestTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "vi" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
<text start="0.5" dur="2">Xin chào</text>
<text start="30" dur="2">it&amp;#39;s fine</text>
<text start="75" dur="2">next minute</text>
<text start="200" dur="2"> </text>
</transcript>`))
	}))
	defer srv.Close()

	f := New(Config{TimedTextURL: srv.URL}, zap.NewNop())
	out, err := f.Transcript(context.Background(), "https://youtu.be/dQw4w9WgXcQ?t=3")
	require.NoError(t, err)
	assert.Equal(t, "=== YOUTUBE TRANSCRIPT ===\nVideo ID: dQw4w9WgXcQ\nLanguage: Vietnamese\n---\n"+
		"[00:00] Xin chào it's fine\n[01:00] next minute\n=== END TRANSCRIPT ===", out)

	_, err = f.Transcript(context.Background(), "https://example.com/video")
	assert.ErrorIs(t, err, ErrNoVideoID)
}

func TestVideoID(t *testing.T) {
	id, ok := VideoID("https://www.youtube.com/watch?v=abcdefghijk&list=x")
	assert.True(t, ok)
	assert.Equal(t, "abcdefghijk", id)

	_, ok = VideoID("https://www.youtube.com/watch?v=short")
	assert.False(t, ok)
}
