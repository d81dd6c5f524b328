package reporter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/crawl"
	"github.com/pagemill/pagemill/internal/store/memory"
)

type failingSessionStore struct{}

func (failingSessionStore) UpdateSession(context.Context, string, crawl.SessionUpdate) error {
	return errors.New("connection refused")
}

func (failingSessionStore) GetSession(context.Context, string) (crawl.CrawlSession, error) {
	return crawl.CrawlSession{}, errors.New("connection refused")
}

type failingPageStore struct{}

func (failingPageStore) UpsertPage(context.Context, crawl.PageRecord) error {
	return errors.New("constraint violation")
}

func (failingPageStore) ListPages(context.Context, string) ([]crawl.PageRecord, error) {
	return nil, errors.New("connection refused")
}

func TestUpdateSessionSwallowsStoreErrors(t *testing.T) {
	t.Parallel()

	r, err := New(failingSessionStore{}, memory.NewPageStore(), zap.NewNop())
	require.NoError(t, err)

	// Must not panic or propagate the store failure.
	r.UpdateSession(context.Background(), "site-1", crawl.SessionUpdate{Status: crawl.StatusCrawling})
}

func TestUpsertPagePropagatesErrors(t *testing.T) {
	t.Parallel()

	r, err := New(memory.NewSessionStore(), failingPageStore{}, zap.NewNop())
	require.NoError(t, err)

	err = r.UpsertPage(context.Background(), crawl.PageRecord{SiteID: "s", URL: "https://x.com/"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "https://x.com/")
}

func TestReporterRoundTrip(t *testing.T) {
	t.Parallel()

	r, err := New(memory.NewSessionStore(), memory.NewPageStore(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	r.UpdateSession(ctx, "site-1", crawl.SessionUpdate{Status: crawl.StatusQueued})
	session, err := r.GetSession(ctx, "site-1")
	require.NoError(t, err)
	require.Equal(t, crawl.StatusQueued, session.Status)

	require.NoError(t, r.UpsertPage(ctx, crawl.PageRecord{SiteID: "site-1", URL: "https://x.com/"}))
	pages, err := r.ListPages(ctx, "site-1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
}

func TestNewValidatesStores(t *testing.T) {
	t.Parallel()

	_, err := New(nil, memory.NewPageStore(), nil)
	require.Error(t, err)
	_, err = New(memory.NewSessionStore(), nil, nil)
	require.Error(t, err)
}
