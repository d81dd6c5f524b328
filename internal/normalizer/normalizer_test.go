package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/crawl"
)

func sampleRaw() crawl.RawPageResult {
	return crawl.RawPageResult{
		Markdown: "# Welcome\n\nWe make widgets.\n\n© 2024 Widgets Inc\nAll rights reserved",
		HTML:     "<article><h1>Welcome</h1><p>We make widgets.</p></article>",
		RawHTML:  "<html><head><title>Widgets Inc</title></head><body><h1>Welcome</h1></body></html>",
		Links:    []string{"/products", "https://partner.example.com/ref", "not a url"},
		Metadata: crawl.PageMetadata{
			Title:       "Widgets Inc — Home",
			Description: "Widgets for everyone",
			SourceURL:   "https://widgets.example.com/",
			StatusCode:  200,
		},
	}
}

func TestNormalizeProducesCanonicalRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rec, err := Normalize(sampleRaw(), "site-1", now)
	require.NoError(t, err)

	require.Equal(t, "site-1", rec.SiteID)
	require.Equal(t, "https://widgets.example.com/", rec.URL)
	require.Equal(t, "/", rec.Path)
	require.Equal(t, "Widgets Inc — Home", rec.Title)
	require.Equal(t, "# Welcome\n\nWe make widgets.", rec.MainContent)
	require.Equal(t, []crawl.Heading{{Level: 1, Text: "Welcome"}}, rec.Headings)
	require.Equal(t, []string{"/products"}, rec.LinksInternal)
	require.Equal(t, []string{"https://partner.example.com/ref"}, rec.LinksExternal)
	require.Equal(t, "Widgets for everyone", rec.MetaTags.Description)
	require.Equal(t, 200, rec.StatusCode)
	require.Equal(t, now, rec.CrawledAt)
}

func TestNormalizeIsIdempotentModuloTimestamp(t *testing.T) {
	t.Parallel()

	first, err := Normalize(sampleRaw(), "site-1", time.Unix(1000, 0))
	require.NoError(t, err)
	second, err := Normalize(sampleRaw(), "site-1", time.Unix(2000, 0))
	require.NoError(t, err)

	second.CrawledAt = first.CrawledAt
	require.Equal(t, first, second)
}

func TestNormalizeRejectsMalformedSourceURL(t *testing.T) {
	t.Parallel()

	for _, source := range []string{"", "   ", "/relative/only", "not a url at all", "example.com/no-scheme"} {
		raw := sampleRaw()
		raw.Metadata.SourceURL = source
		_, err := Normalize(raw, "site-1", time.Now())
		require.Error(t, err, "source %q", source)
	}
}

func TestNormalizeFallsBackToHTMLTitleAndDescription(t *testing.T) {
	t.Parallel()

	raw := sampleRaw()
	raw.Metadata.Title = ""
	raw.Metadata.Description = ""
	raw.HTML = `<html><head><title> Fallback Title </title><meta name="description" content="From the meta tag"></head></html>`

	rec, err := Normalize(raw, "site-1", time.Now())
	require.NoError(t, err)
	require.Equal(t, "Fallback Title", rec.Title)
	require.Equal(t, "From the meta tag", rec.MetaTags.Description)
}

func TestNormalizeDefaultsEmptyPathToSlash(t *testing.T) {
	t.Parallel()

	raw := sampleRaw()
	raw.Metadata.SourceURL = "https://widgets.example.com"

	rec, err := Normalize(raw, "site-1", time.Now())
	require.NoError(t, err)
	require.Equal(t, "/", rec.Path)
}
