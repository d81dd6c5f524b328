package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/crawl"
)

func TestSessionStoreUpdateAndGet(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ctx := context.Background()

	_, err := store.GetSession(ctx, "site-1")
	require.ErrorIs(t, err, crawl.ErrSessionNotFound)

	pages := 0
	limit := 100
	require.NoError(t, store.UpdateSession(ctx, "site-1", crawl.SessionUpdate{
		Status:       crawl.StatusCrawling,
		PagesCrawled: &pages,
		PageLimit:    &limit,
	}))

	session, err := store.GetSession(ctx, "site-1")
	require.NoError(t, err)
	require.Equal(t, crawl.StatusCrawling, session.Status)
	require.Equal(t, 100, session.PageLimit)
	require.False(t, session.UpdatedAt.IsZero())

	// Partial update keeps fields that are not set.
	require.NoError(t, store.UpdateSession(ctx, "site-1", crawl.SessionUpdate{
		Status: crawl.StatusComplete,
	}))
	session, err = store.GetSession(ctx, "site-1")
	require.NoError(t, err)
	require.Equal(t, crawl.StatusComplete, session.Status)
	require.Equal(t, 100, session.PageLimit)
}

func TestPageStoreUpsertReplacesAndSorts(t *testing.T) {
	t.Parallel()

	store := NewPageStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertPage(ctx, crawl.PageRecord{SiteID: "s", URL: "https://x.com/b", Title: "B"}))
	require.NoError(t, store.UpsertPage(ctx, crawl.PageRecord{SiteID: "s", URL: "https://x.com/a", Title: "A"}))
	require.NoError(t, store.UpsertPage(ctx, crawl.PageRecord{SiteID: "s", URL: "https://x.com/b", Title: "B2"}))

	records, err := store.ListPages(ctx, "s")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "https://x.com/a", records[0].URL)
	require.Equal(t, "B2", records[1].Title)

	other, err := store.ListPages(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, other)
}
