// Package reporter mediates all persistence writes made during a crawl run.
package reporter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/crawl"
)

// Reporter fronts the session and page stores with the write policy the
// controller relies on: session updates are best-effort and never abort a
// run, while page writes surface their errors so the caller can decide.
type Reporter struct {
	sessions crawl.SessionStore
	pages    crawl.PageStore
	logger   *zap.Logger
}

// New builds a Reporter over the given stores.
func New(sessions crawl.SessionStore, pages crawl.PageStore, logger *zap.Logger) (*Reporter, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if pages == nil {
		return nil, fmt.Errorf("page store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{sessions: sessions, pages: pages, logger: logger}, nil
}

// UpdateSession writes a session status update. Store failures are logged
// and swallowed; a crawl in flight must not die because a status row was
// briefly unwritable.
func (r *Reporter) UpdateSession(ctx context.Context, siteID string, update crawl.SessionUpdate) {
	if err := r.sessions.UpdateSession(ctx, siteID, update); err != nil {
		r.logger.Warn("session update failed",
			zap.String("site_id", siteID),
			zap.String("status", string(update.Status)),
			zap.Error(err),
		)
	}
}

// UpsertPage persists one normalized page record.
func (r *Reporter) UpsertPage(ctx context.Context, record crawl.PageRecord) error {
	if err := r.pages.UpsertPage(ctx, record); err != nil {
		return fmt.Errorf("persist page %s: %w", record.URL, err)
	}
	return nil
}

// GetSession reads the current session row for a site.
func (r *Reporter) GetSession(ctx context.Context, siteID string) (crawl.CrawlSession, error) {
	return r.sessions.GetSession(ctx, siteID)
}

// ListPages returns the persisted pages for a site.
func (r *Reporter) ListPages(ctx context.Context, siteID string) ([]crawl.PageRecord, error) {
	return r.pages.ListPages(ctx, siteID)
}
