package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/crawl"
)

type stubRunner struct {
	crawls    chan crawl.CrawlOptions
	scrape    crawl.PageRecord
	scrapeErr error
}

func newStubRunner() *stubRunner {
	return &stubRunner{crawls: make(chan crawl.CrawlOptions, 1)}
}

func (s *stubRunner) RunCrawl(_ context.Context, _, _ string, opts crawl.CrawlOptions) (crawl.Summary, error) {
	s.crawls <- opts
	return crawl.Summary{Success: true}, nil
}

func (s *stubRunner) ScrapePage(context.Context, string, crawl.ScrapeRequest) (crawl.PageRecord, error) {
	return s.scrape, s.scrapeErr
}

type stubReader struct {
	session crawl.CrawlSession
	err     error
	pages   []crawl.PageRecord
}

func (s *stubReader) GetSession(context.Context, string) (crawl.CrawlSession, error) {
	return s.session, s.err
}

func (s *stubReader) ListPages(context.Context, string) ([]crawl.PageRecord, error) {
	return s.pages, nil
}

func testConfig() config.Config {
	return config.Config{
		Crawl: config.CrawlConfig{PageLimitDefault: 100, ScrapeTimeoutSeconds: 30},
	}
}

func TestStartCrawlAcceptsAndRunsInBackground(t *testing.T) {
	t.Parallel()

	runner := newStubRunner()
	srv := NewServer(runner, &stubReader{}, testConfig(), zap.NewNop())

	body := bytes.NewBufferString(`{"seed_url":"https://x.com/","page_limit":25,"run_classifier":true}`)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sites/site-1/crawl", body))
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case opts := <-runner.crawls:
		require.Equal(t, 25, opts.PageLimit)
		require.True(t, opts.RunClassifier)
	case <-time.After(time.Second):
		t.Fatal("crawl was not started")
	}
}

func TestStartCrawlDefaultsPageLimit(t *testing.T) {
	t.Parallel()

	runner := newStubRunner()
	srv := NewServer(runner, &stubReader{}, testConfig(), zap.NewNop())

	body := bytes.NewBufferString(`{"seed_url":"https://x.com/"}`)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sites/site-1/crawl", body))
	require.Equal(t, http.StatusAccepted, rec.Code)

	opts := <-runner.crawls
	require.Equal(t, 100, opts.PageLimit)
}

func TestStartCrawlValidatesBody(t *testing.T) {
	t.Parallel()

	srv := NewServer(newStubRunner(), &stubReader{}, testConfig(), zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sites/site-1/crawl", bytes.NewBufferString(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sites/site-1/crawl", bytes.NewBufferString(`not json`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	t.Parallel()

	reader := &stubReader{err: crawl.ErrSessionNotFound}
	srv := NewServer(newStubRunner(), reader, testConfig(), zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sites/unknown/session", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSessionReturnsRecord(t *testing.T) {
	t.Parallel()

	reader := &stubReader{session: crawl.CrawlSession{
		SiteID:       "site-1",
		Status:       crawl.StatusComplete,
		PagesCrawled: 12,
	}}
	srv := NewServer(newStubRunner(), reader, testConfig(), zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sites/site-1/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var session crawl.CrawlSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.Equal(t, crawl.StatusComplete, session.Status)
	require.Equal(t, 12, session.PagesCrawled)
}

func TestListPagesReturnsEmptyArray(t *testing.T) {
	t.Parallel()

	srv := NewServer(newStubRunner(), &stubReader{}, testConfig(), zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sites/site-1/pages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"pages":[]`)
}

func TestScrapePageReturnsRecord(t *testing.T) {
	t.Parallel()

	runner := newStubRunner()
	runner.scrape = crawl.PageRecord{SiteID: "site-1", URL: "https://x.com/a", Path: "/a"}
	srv := NewServer(runner, &stubReader{}, testConfig(), zap.NewNop())

	body := bytes.NewBufferString(`{"url":"https://x.com/a"}`)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sites/site-1/scrape", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var record crawl.PageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.Equal(t, "/a", record.Path)
}

func TestScrapePageEngineFailure(t *testing.T) {
	t.Parallel()

	runner := newStubRunner()
	runner.scrapeErr = errors.New("engine unreachable")
	srv := NewServer(runner, &stubReader{}, testConfig(), zap.NewNop())

	body := bytes.NewBufferString(`{"url":"https://x.com/a"}`)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sites/site-1/scrape", body))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPIKeyGuardsV1Routes(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKey: "secret"}
	srv := NewServer(newStubRunner(), &stubReader{session: crawl.CrawlSession{SiteID: "site-1"}}, cfg, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sites/site-1/session", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/sites/site-1/session", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
