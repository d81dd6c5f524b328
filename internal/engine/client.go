// Package engine contains clients for the external Crawling Engine API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/crawl"
	"github.com/pagemill/pagemill/internal/metrics"
)

// ClientConfig configures the HTTP engine client.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	// Retries is the number of additional attempts after the first failure.
	Retries int
	// HTTPClient overrides the transport, primarily for tests.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the Crawling Engine over HTTP. A full-site crawl is a single
// long-poll request with no client-side deadline beyond ctx; single-page
// scrapes carry their own per-request timeout.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	retries   int
	http      *http.Client
	logger    *zap.Logger
}

// NewClient validates the config and returns a ready Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("engine api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		retries:   cfg.Retries,
		http:      httpClient,
		logger:    logger,
	}, nil
}

// CrawlSite runs a bounded full-site crawl and returns the raw page set.
func (c *Client) CrawlSite(ctx context.Context, req crawl.CrawlRequest) (crawl.CrawlResult, error) {
	if req.SeedURL == "" {
		return crawl.CrawlResult{}, fmt.Errorf("seed url is required")
	}
	body := crawlRequestBody{
		URL:          req.SeedURL,
		Limit:        req.PageLimit,
		ExcludePaths: req.ExcludePaths,
		ScrapeOptions: scrapeOptions{
			Formats: defaultFormats,
		},
	}
	start := time.Now()
	raw, err := c.postJSON(ctx, "/v1/crawl", body)
	if err != nil {
		metrics.ObserveEngineRequest("crawl", "error", time.Since(start))
		return crawl.CrawlResult{}, fmt.Errorf("engine crawl: %w", err)
	}
	metrics.ObserveEngineRequest("crawl", "success", time.Since(start))

	var resp crawlResponseBody
	if err := json.Unmarshal(raw, &resp); err != nil {
		return crawl.CrawlResult{}, fmt.Errorf("decode engine crawl response: %w", err)
	}
	// A completed run with zero pages is a valid outcome (every page
	// excluded, for instance); only a response carrying neither a status
	// nor any data is treated as missing.
	if resp.Status == "" && len(resp.Data) == 0 {
		return crawl.CrawlResult{}, fmt.Errorf("engine returned an empty response")
	}
	return crawl.CrawlResult{
		Status: resp.Status,
		Total:  resp.Total,
		Pages:  resp.Data,
	}, nil
}

// ScrapePage fetches a single page. req.Timeout bounds the whole call.
func (c *Client) ScrapePage(ctx context.Context, req crawl.ScrapeRequest) (crawl.RawPageResult, error) {
	if req.URL == "" {
		return crawl.RawPageResult{}, fmt.Errorf("page url is required")
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	body := scrapeRequestBody{
		URL:             req.URL,
		Formats:         defaultFormats,
		OnlyMainContent: req.OnlyMainContent,
		ExcludeTags:     req.ExcludeTags,
		Timeout:         int(req.Timeout.Milliseconds()),
	}
	start := time.Now()
	raw, err := c.postJSON(ctx, "/v1/scrape", body)
	if err != nil {
		metrics.ObserveEngineRequest("scrape", "error", time.Since(start))
		return crawl.RawPageResult{}, fmt.Errorf("engine scrape: %w", err)
	}
	metrics.ObserveEngineRequest("scrape", "success", time.Since(start))

	var resp scrapeResponseBody
	if err := json.Unmarshal(raw, &resp); err != nil {
		return crawl.RawPageResult{}, fmt.Errorf("decode engine scrape response: %w", err)
	}
	if resp.Data.Markdown == "" {
		return crawl.RawPageResult{}, fmt.Errorf("engine scrape returned no markdown for %s", req.URL)
	}
	return resp.Data, nil
}

// postJSON sends one POST request with retries. Server-side (5xx) and
// transport errors are retried with exponential backoff; any other non-2xx
// status fails immediately.
func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var out []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("post %s: %w", path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			out = data
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("engine returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("engine returned %d: %s", resp.StatusCode, truncate(data, 200)))
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("engine request retry",
			zap.String("path", path),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
