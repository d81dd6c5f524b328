package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pagemill/pagemill/internal/crawl"
)

// PageStore persists site_pages rows keyed by (site_id, url).
type PageStore struct {
	pool dbConn
}

// NewPageStore wraps an existing pool.
func NewPageStore(pool dbConn) (*PageStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PageStore{pool: pool}, nil
}

// UpsertPage inserts or fully replaces the record for (site_id, url).
func (s *PageStore) UpsertPage(ctx context.Context, record crawl.PageRecord) error {
	if record.SiteID == "" {
		return fmt.Errorf("site id is required")
	}
	if record.URL == "" {
		return fmt.Errorf("page url is required")
	}
	headingsJSON, err := json.Marshal(record.Headings)
	if err != nil {
		return fmt.Errorf("marshal headings: %w", err)
	}
	metaJSON, err := json.Marshal(record.MetaTags)
	if err != nil {
		return fmt.Errorf("marshal meta tags: %w", err)
	}
	query := `
		INSERT INTO site_pages (
			site_id, url, path, title,
			html_content, cleaned_html, main_content,
			headings, meta_tags,
			links_internal, links_external,
			status_code, crawled_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (site_id, url) DO UPDATE SET
			path = EXCLUDED.path,
			title = EXCLUDED.title,
			html_content = EXCLUDED.html_content,
			cleaned_html = EXCLUDED.cleaned_html,
			main_content = EXCLUDED.main_content,
			headings = EXCLUDED.headings,
			meta_tags = EXCLUDED.meta_tags,
			links_internal = EXCLUDED.links_internal,
			links_external = EXCLUDED.links_external,
			status_code = EXCLUDED.status_code,
			crawled_at = EXCLUDED.crawled_at;
	`
	args := []any{
		record.SiteID,
		record.URL,
		record.Path,
		record.Title,
		record.HTMLContent,
		record.CleanedHTML,
		record.MainContent,
		headingsJSON,
		metaJSON,
		record.LinksInternal,
		record.LinksExternal,
		record.StatusCode,
		record.CrawledAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

// ListPages returns all persisted pages for a site ordered by URL.
func (s *PageStore) ListPages(ctx context.Context, siteID string) ([]crawl.PageRecord, error) {
	query := `
		SELECT site_id, url, path, title,
			html_content, cleaned_html, main_content,
			headings, meta_tags,
			links_internal, links_external,
			status_code, crawled_at
		FROM site_pages
		WHERE site_id = $1
		ORDER BY url;
	`
	rows, err := s.pool.Query(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var records []crawl.PageRecord
	for rows.Next() {
		var (
			record       crawl.PageRecord
			headingsJSON []byte
			metaJSON     []byte
		)
		err := rows.Scan(
			&record.SiteID,
			&record.URL,
			&record.Path,
			&record.Title,
			&record.HTMLContent,
			&record.CleanedHTML,
			&record.MainContent,
			&headingsJSON,
			&metaJSON,
			&record.LinksInternal,
			&record.LinksExternal,
			&record.StatusCode,
			&record.CrawledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		if len(headingsJSON) > 0 {
			if err := json.Unmarshal(headingsJSON, &record.Headings); err != nil {
				return nil, fmt.Errorf("unmarshal headings: %w", err)
			}
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &record.MetaTags); err != nil {
				return nil, fmt.Errorf("unmarshal meta tags: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page rows: %w", err)
	}
	return records, nil
}
