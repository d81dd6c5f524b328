package embedded

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/crawl"
)

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
			<title>Acme Home</title>
			<meta name="description" content="Acme makes widgets">
			<meta property="og:title" content="Acme">
		</head><body>
			<nav><a href="/about">About</a></nav>
			<h1>Welcome</h1>
			<a href="/about">About us</a>
			<a href="/blog/post">Blog</a>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>About</title></head>
			<body><h1>About</h1><script>track()</script></body></html>`)
	})
	mux.HandleFunc("/blog/post", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Post</title></head><body><h1>Post</h1></body></html>`)
	})
	return httptest.NewServer(mux)
}

func TestCrawlSiteWalksSameHostPages(t *testing.T) {
	srv := newSiteServer(t)
	defer srv.Close()

	e := New(Config{Timeout: 5 * time.Second})
	result, err := e.CrawlSite(context.Background(), crawl.CrawlRequest{
		SeedURL:   srv.URL + "/",
		PageLimit: 10,
	})
	require.NoError(t, err)
	require.Equal(t, crawl.EngineStatusCompleted, result.Status)
	require.Equal(t, 3, result.Total)

	byURL := map[string]crawl.RawPageResult{}
	for _, page := range result.Pages {
		byURL[page.Metadata.SourceURL] = page
	}
	home, ok := byURL[srv.URL+"/"]
	require.True(t, ok)
	require.Equal(t, "Acme Home", home.Metadata.Title)
	require.Equal(t, "Acme makes widgets", home.Metadata.Description)
	require.Equal(t, "Acme", home.Metadata.OGTitle)
	require.Equal(t, 200, home.Metadata.StatusCode)
	require.Contains(t, home.Markdown, "Welcome")
	require.Contains(t, home.Links, "/about")
	// nav content is stripped from the cleaned HTML but not the raw copy.
	require.NotContains(t, home.HTML, "<nav>")
	require.Contains(t, home.RawHTML, "<nav>")
}

func TestCrawlSiteHonorsExcludePaths(t *testing.T) {
	srv := newSiteServer(t)
	defer srv.Close()

	e := New(Config{Timeout: 5 * time.Second})
	result, err := e.CrawlSite(context.Background(), crawl.CrawlRequest{
		SeedURL:      srv.URL + "/",
		PageLimit:    10,
		ExcludePaths: []string{"/blog/*"},
	})
	require.NoError(t, err)
	for _, page := range result.Pages {
		require.NotContains(t, page.Metadata.SourceURL, "/blog/")
	}
	require.Equal(t, 2, result.Total)
}

func TestCrawlSiteHonorsPageLimit(t *testing.T) {
	srv := newSiteServer(t)
	defer srv.Close()

	e := New(Config{Timeout: 5 * time.Second})
	result, err := e.CrawlSite(context.Background(), crawl.CrawlRequest{
		SeedURL:   srv.URL + "/",
		PageLimit: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
}

func TestCrawlSiteAllExcludedYieldsEmptyCompletedRun(t *testing.T) {
	srv := newSiteServer(t)
	defer srv.Close()

	e := New(Config{Timeout: 5 * time.Second})
	result, err := e.CrawlSite(context.Background(), crawl.CrawlRequest{
		SeedURL:      srv.URL + "/",
		PageLimit:    10,
		ExcludePaths: []string{"/*"},
	})
	require.NoError(t, err)
	require.Equal(t, crawl.EngineStatusCompleted, result.Status)
	require.Zero(t, result.Total)
	require.Empty(t, result.Pages)
}

func TestCrawlSiteUnreachableSeedFails(t *testing.T) {
	srv := newSiteServer(t)
	srv.Close()

	e := New(Config{Timeout: time.Second})
	_, err := e.CrawlSite(context.Background(), crawl.CrawlRequest{
		SeedURL:   srv.URL + "/",
		PageLimit: 10,
	})
	require.Error(t, err)
}

func TestCrawlSiteRejectsBadSeed(t *testing.T) {
	e := New(Config{})
	_, err := e.CrawlSite(context.Background(), crawl.CrawlRequest{SeedURL: "not a url"})
	require.Error(t, err)
}

func TestScrapePageFetchesOnePage(t *testing.T) {
	srv := newSiteServer(t)
	defer srv.Close()

	e := New(Config{Timeout: 5 * time.Second})
	page, err := e.ScrapePage(context.Background(), crawl.ScrapeRequest{
		URL:     srv.URL + "/about",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "About", page.Metadata.Title)
	require.Contains(t, page.Markdown, "About")
	require.NotContains(t, page.HTML, "track()")
}

func TestScrapePageReportsHTTPErrors(t *testing.T) {
	srv := newSiteServer(t)
	defer srv.Close()

	e := New(Config{Timeout: 5 * time.Second})
	_, err := e.ScrapePage(context.Background(), crawl.ScrapeRequest{URL: srv.URL + "/missing"})
	require.Error(t, err)
}
