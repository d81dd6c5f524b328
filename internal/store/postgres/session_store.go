package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pagemill/pagemill/internal/crawl"
)

// SessionStore persists crawl_sessions rows, one per site.
type SessionStore struct {
	pool dbConn
}

// NewSessionStore wraps an existing pool. The pool may be shared with other
// stores; Close is a no-op here and left to the owner.
func NewSessionStore(pool dbConn) (*SessionStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SessionStore{pool: pool}, nil
}

// UpdateSession applies a partial update to the site's session row. The
// status and modification timestamp are always written; pages, limit, and
// error message only when set. A missing row is created on first write.
func (s *SessionStore) UpdateSession(ctx context.Context, siteID string, update crawl.SessionUpdate) error {
	if siteID == "" {
		return fmt.Errorf("site id is required")
	}
	if update.Status == "" {
		return fmt.Errorf("session status is required")
	}
	now := time.Now().UTC()

	sets := []string{"crawl_status = $1"}
	args := []any{string(update.Status)}
	if update.PagesCrawled != nil {
		args = append(args, *update.PagesCrawled)
		sets = append(sets, fmt.Sprintf("pages_crawled = $%d", len(args)))
	}
	if update.PageLimit != nil {
		args = append(args, *update.PageLimit)
		sets = append(sets, fmt.Sprintf("page_limit = $%d", len(args)))
	}
	if update.ErrorMessage != nil {
		args = append(args, *update.ErrorMessage)
		sets = append(sets, fmt.Sprintf("error_message = NULLIF($%d, '')", len(args)))
	}
	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, siteID)

	query := fmt.Sprintf(
		"UPDATE crawl_sessions SET %s WHERE site_id = $%d",
		strings.Join(sets, ", "), len(args),
	)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update crawl session: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var pages, limit int
	var errMsg string
	if update.PagesCrawled != nil {
		pages = *update.PagesCrawled
	}
	if update.PageLimit != nil {
		limit = *update.PageLimit
	}
	if update.ErrorMessage != nil {
		errMsg = *update.ErrorMessage
	}
	insert := `
		INSERT INTO crawl_sessions (site_id, crawl_status, pages_crawled, page_limit, error_message, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (site_id) DO NOTHING;
	`
	if _, err := s.pool.Exec(ctx, insert, siteID, string(update.Status), pages, limit, errMsg, now); err != nil {
		return fmt.Errorf("insert crawl session: %w", err)
	}
	return nil
}

// GetSession returns the session row for a site, or crawl.ErrSessionNotFound.
func (s *SessionStore) GetSession(ctx context.Context, siteID string) (crawl.CrawlSession, error) {
	query := `
		SELECT site_id, crawl_status, pages_crawled, page_limit, error_message, updated_at
		FROM crawl_sessions
		WHERE site_id = $1;
	`
	var (
		session crawl.CrawlSession
		status  string
		errMsg  *string
	)
	err := s.pool.QueryRow(ctx, query, siteID).Scan(
		&session.SiteID,
		&status,
		&session.PagesCrawled,
		&session.PageLimit,
		&errMsg,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawl.CrawlSession{}, crawl.ErrSessionNotFound
		}
		return crawl.CrawlSession{}, fmt.Errorf("get crawl session: %w", err)
	}
	session.Status = crawl.SessionStatus(status)
	if errMsg != nil {
		session.ErrorMessage = *errMsg
	}
	return session, nil
}
