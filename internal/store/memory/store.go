// Package memory provides in-memory session and page stores for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pagemill/pagemill/internal/crawl"
)

// SessionStore keeps session rows in a map guarded by a mutex.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]crawl.CrawlSession
}

// NewSessionStore returns an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]crawl.CrawlSession)}
}

// UpdateSession applies a partial update, creating the row if needed.
func (s *SessionStore) UpdateSession(_ context.Context, siteID string, update crawl.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.sessions[siteID]
	session.SiteID = siteID
	session.Status = update.Status
	if update.PagesCrawled != nil {
		session.PagesCrawled = *update.PagesCrawled
	}
	if update.PageLimit != nil {
		session.PageLimit = *update.PageLimit
	}
	if update.ErrorMessage != nil {
		session.ErrorMessage = *update.ErrorMessage
	}
	session.UpdatedAt = time.Now().UTC()
	s.sessions[siteID] = session
	return nil
}

// GetSession returns the stored session or crawl.ErrSessionNotFound.
func (s *SessionStore) GetSession(_ context.Context, siteID string) (crawl.CrawlSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[siteID]
	if !ok {
		return crawl.CrawlSession{}, crawl.ErrSessionNotFound
	}
	return session, nil
}

// PageStore keeps page records in a nested map keyed by site then URL.
type PageStore struct {
	mu    sync.RWMutex
	pages map[string]map[string]crawl.PageRecord
}

// NewPageStore returns an empty in-memory page store.
func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[string]map[string]crawl.PageRecord)}
}

// UpsertPage stores or replaces the record for (site id, url).
func (s *PageStore) UpsertPage(_ context.Context, record crawl.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok := s.pages[record.SiteID]
	if !ok {
		site = make(map[string]crawl.PageRecord)
		s.pages[record.SiteID] = site
	}
	site[record.URL] = record
	return nil
}

// ListPages returns a site's pages ordered by URL.
func (s *PageStore) ListPages(_ context.Context, siteID string) ([]crawl.PageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	site := s.pages[siteID]
	records := make([]crawl.PageRecord, 0, len(site))
	for _, record := range site {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].URL < records[j].URL
	})
	return records, nil
}
