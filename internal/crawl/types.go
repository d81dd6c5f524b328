// Package crawl defines the core types shared across the crawl pipeline.
package crawl

import (
	"errors"
	"time"
)

// SessionStatus represents the lifecycle state of a site's crawl session.
type SessionStatus string

// Session status values persisted in the session store. A session moves
// queued -> crawling -> (classifying ->) complete, with crawling or
// classifying able to end in error on a fatal engine failure. complete and
// error are terminal for a run; a new crawl re-enters at crawling.
const (
	StatusQueued      SessionStatus = "queued"
	StatusCrawling    SessionStatus = "crawling"
	StatusClassifying SessionStatus = "classifying"
	StatusComplete    SessionStatus = "complete"
	StatusError       SessionStatus = "error"
)

// EngineStatusCompleted is the only engine response status treated as success.
const EngineStatusCompleted = "completed"

// ErrSessionNotFound is returned by session stores for unknown site IDs.
var ErrSessionNotFound = errors.New("crawl session not found")

// CrawlSession tracks one site's crawl run: progress, outcome, and the
// parameters it was started with. There is exactly one row per site; a new
// run overwrites the previous terminal state.
type CrawlSession struct {
	SiteID       string        `json:"site_id"`
	Status       SessionStatus `json:"status"`
	PagesCrawled int           `json:"pages_crawled"`
	PageLimit    int           `json:"page_limit"`
	ErrorMessage string        `json:"error_message,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// SessionUpdate is a partial update to a session record. Only non-nil fields
// are written; Status is always written and the modification timestamp is
// always refreshed.
type SessionUpdate struct {
	Status       SessionStatus
	PagesCrawled *int
	PageLimit    *int
	ErrorMessage *string
}

// PageMetadata is the loosely-typed metadata block attached to an engine
// result. Every field is optional on the wire; defaulting happens once, at
// the normalizer boundary.
type PageMetadata struct {
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Keywords      string `json:"keywords,omitempty"`
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
	SourceURL     string `json:"sourceURL,omitempty"`
	StatusCode    int    `json:"statusCode,omitempty"`
}

// RawPageResult is one page as returned by the Crawling Engine. Links may
// contain malformed entries; Markdown must be non-empty for a single-page
// scrape to be considered valid.
type RawPageResult struct {
	Markdown string       `json:"markdown,omitempty"`
	HTML     string       `json:"html,omitempty"`
	RawHTML  string       `json:"rawHtml,omitempty"`
	Links    []string     `json:"links,omitempty"`
	Metadata PageMetadata `json:"metadata"`
}

// Heading is one markdown heading in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// MetaTags is the subset of page metadata persisted with a PageRecord.
type MetaTags struct {
	Description   string `json:"description,omitempty"`
	Keywords      string `json:"keywords,omitempty"`
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
}

// PageRecord is the canonical, normalized representation of one crawled
// page. Uniqueness key is (SiteID, URL); upserts replace the prior record.
type PageRecord struct {
	SiteID        string    `json:"site_id"`
	URL           string    `json:"url"`
	Path          string    `json:"path"`
	Title         string    `json:"title,omitempty"`
	HTMLContent   string    `json:"html_content,omitempty"`
	CleanedHTML   string    `json:"cleaned_html,omitempty"`
	MainContent   string    `json:"main_content,omitempty"`
	Headings      []Heading `json:"headings,omitempty"`
	MetaTags      MetaTags  `json:"meta_tags"`
	LinksInternal []string  `json:"links_internal,omitempty"`
	LinksExternal []string  `json:"links_external,omitempty"`
	StatusCode    int       `json:"status_code,omitempty"`
	CrawledAt     time.Time `json:"crawled_at"`
}

// CrawlOptions are the per-run knobs accepted by the controller.
type CrawlOptions struct {
	PageLimit     int
	ExcludePaths  []string
	RunClassifier bool
}

// Summary is returned by a completed crawl run.
type Summary struct {
	Success        bool `json:"success"`
	PagesProcessed int  `json:"pages_processed"`
}

// CrawlRequest asks the engine for a bounded full-site crawl.
type CrawlRequest struct {
	SeedURL      string
	PageLimit    int
	ExcludePaths []string
}

// CrawlResult is the engine's full-site response. Status is the engine's own
// completion marker; anything other than EngineStatusCompleted is fatal.
type CrawlResult struct {
	Status string
	Total  int
	Pages  []RawPageResult
}

// ScrapeRequest asks the engine for a single page. Timeout applies to this
// one fetch only; it is the only timeout in the pipeline.
type ScrapeRequest struct {
	URL             string
	OnlyMainContent bool
	ExcludeTags     []string
	Timeout         time.Duration
}
