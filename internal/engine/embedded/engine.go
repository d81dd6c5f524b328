// Package embedded provides a self-contained Crawling Engine backed by a
// local collector. It exists for development and air-gapped deployments
// where the hosted engine API is unavailable.
package embedded

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/crawl"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Engine crawls sites directly instead of delegating to the engine API. It
// produces the same RawPageResult shape the HTTP client does.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New builds an embedded Engine.
func New(cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// CrawlSite walks the site breadth-first from the seed, same-host only,
// until the page limit is reached.
func (e *Engine) CrawlSite(ctx context.Context, req crawl.CrawlRequest) (crawl.CrawlResult, error) {
	seed, err := url.Parse(req.SeedURL)
	if err != nil || seed.Scheme == "" || seed.Host == "" {
		return crawl.CrawlResult{}, fmt.Errorf("invalid seed url %q", req.SeedURL)
	}
	limit := req.PageLimit
	if limit <= 0 {
		limit = 100
	}
	excluded := normalizeExcludes(req.ExcludePaths)

	var (
		mu       sync.Mutex
		pages    []crawl.RawPageResult
		fetchErr error
	)

	collector := e.newCollector(seed.Hostname())
	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		mu.Lock()
		full := len(pages) >= limit
		mu.Unlock()
		if full || isExcluded(r.URL.Path, excluded) {
			r.Abort()
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		if !strings.Contains(r.Headers.Get("Content-Type"), "text/html") {
			return
		}
		page, err := e.buildPage(r.Body, r.Request.URL, r.StatusCode)
		if err != nil {
			e.logger.Warn("skipping unparseable page",
				zap.String("url", r.Request.URL.String()),
				zap.Error(err),
			)
			return
		}
		mu.Lock()
		if len(pages) < limit {
			pages = append(pages, page)
		}
		mu.Unlock()
	})
	collector.OnHTML("a[href]", func(el *colly.HTMLElement) {
		link := el.Request.AbsoluteURL(el.Attr("href"))
		if link == "" {
			return
		}
		// Visit errors (already seen, off-domain, aborted) are expected.
		_ = el.Request.Visit(link)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		mu.Lock()
		if fetchErr == nil {
			fetchErr = err
		}
		mu.Unlock()
	})

	if err := collector.Visit(seed.String()); err != nil {
		return crawl.CrawlResult{}, fmt.Errorf("crawl %s: %w", req.SeedURL, err)
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return crawl.CrawlResult{}, fmt.Errorf("crawl %s: %w", req.SeedURL, err)
	}
	// Zero pages is a valid outcome when every request was excluded; it is
	// an error only when a fetch actually failed.
	if len(pages) == 0 && fetchErr != nil {
		return crawl.CrawlResult{}, fmt.Errorf("crawl %s: %w", req.SeedURL, fetchErr)
	}
	return crawl.CrawlResult{
		Status: crawl.EngineStatusCompleted,
		Total:  len(pages),
		Pages:  pages,
	}, nil
}

// ScrapePage fetches exactly one page.
func (e *Engine) ScrapePage(ctx context.Context, req crawl.ScrapeRequest) (crawl.RawPageResult, error) {
	target, err := url.Parse(req.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return crawl.RawPageResult{}, fmt.Errorf("invalid page url %q", req.URL)
	}

	var (
		page     crawl.RawPageResult
		pageErr  error
		received bool
	)
	collector := e.newCollector(target.Hostname())
	if req.Timeout > 0 {
		collector.SetRequestTimeout(req.Timeout)
	}
	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		page, pageErr = e.buildPage(r.Body, r.Request.URL, r.StatusCode)
		received = true
	})
	collector.OnError(func(_ *colly.Response, err error) {
		pageErr = err
	})

	if err := collector.Visit(target.String()); err != nil {
		return crawl.RawPageResult{}, fmt.Errorf("scrape %s: %w", req.URL, err)
	}
	collector.Wait()

	if pageErr != nil {
		return crawl.RawPageResult{}, fmt.Errorf("scrape %s: %w", req.URL, pageErr)
	}
	if !received {
		return crawl.RawPageResult{}, fmt.Errorf("scrape %s returned no response", req.URL)
	}
	if page.Markdown == "" {
		return crawl.RawPageResult{}, fmt.Errorf("scrape %s produced no markdown", req.URL)
	}
	return page, nil
}

func (e *Engine) newCollector(hostname string) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.AllowedDomains(hostname),
	}
	if e.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(e.cfg.UserAgent))
	}
	collector := colly.NewCollector(opts...)
	collector.SetRequestTimeout(e.cfg.Timeout)
	return collector
}

// buildPage converts one HTML response into the engine wire shape: markdown,
// both HTML variants, the raw link list, and page metadata.
func (e *Engine) buildPage(body []byte, pageURL *url.URL, statusCode int) (crawl.RawPageResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawl.RawPageResult{}, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})

	cleaned := cleanHTML(doc)
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return crawl.RawPageResult{}, fmt.Errorf("convert to markdown: %w", err)
	}

	return crawl.RawPageResult{
		Markdown: markdown,
		HTML:     cleaned,
		RawHTML:  string(body),
		Links:    links,
		Metadata: crawl.PageMetadata{
			Title:         strings.TrimSpace(doc.Find("title").First().Text()),
			Description:   metaContent(doc, `meta[name="description"]`),
			Keywords:      metaContent(doc, `meta[name="keywords"]`),
			OGTitle:       metaContent(doc, `meta[property="og:title"]`),
			OGDescription: metaContent(doc, `meta[property="og:description"]`),
			OGImage:       metaContent(doc, `meta[property="og:image"]`),
			SourceURL:     pageURL.String(),
			StatusCode:    statusCode,
		},
	}, nil
}

// cleanHTML strips chrome elements and returns the remaining body HTML.
func cleanHTML(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, nav, footer, header, aside").Remove()
	html, err := body.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func normalizeExcludes(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSuffix(strings.TrimSpace(p), "*")
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, p)
	}
	return out
}

func isExcluded(path string, excluded []string) bool {
	for _, prefix := range excluded {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
