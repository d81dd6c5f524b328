package crawl

import (
	"context"
	"time"
)

// Engine is the external Crawling Engine collaborator. Fetching, rendering,
// and target-site politeness are entirely its concern.
type Engine interface {
	CrawlSite(ctx context.Context, req CrawlRequest) (CrawlResult, error)
	ScrapePage(ctx context.Context, req ScrapeRequest) (RawPageResult, error)
}

// SessionStore persists per-site crawl session records.
type SessionStore interface {
	UpdateSession(ctx context.Context, siteID string, update SessionUpdate) error
	GetSession(ctx context.Context, siteID string) (CrawlSession, error)
}

// PageStore persists canonical page records keyed by (site id, url).
type PageStore interface {
	UpsertPage(ctx context.Context, record PageRecord) error
	ListPages(ctx context.Context, siteID string) ([]PageRecord, error)
}

// Classifier tags a site's pages after a crawl. The call is fire-and-forget:
// the controller logs failures and never lets them change the run outcome.
type Classifier interface {
	Classify(ctx context.Context, siteID string) error
}

// Archiver stores a page's raw HTML in blob storage and returns the object
// URI. Archiving is best-effort; callers must tolerate failures.
type Archiver interface {
	SavePage(ctx context.Context, siteID, pageURL string, html []byte) (string, error)
}

// Clock returns the current time (injectable for testing).
type Clock interface {
	Now() time.Time
}
