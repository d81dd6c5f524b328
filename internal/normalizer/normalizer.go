// Package normalizer converts raw Crawling Engine output into canonical
// page records. Every function here is pure: no side effects, deterministic
// output, safe to call repeatedly on the same input.
package normalizer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagemill/pagemill/internal/crawl"
)

// Normalize transforms one raw scrape result into a PageRecord for siteID.
// crawledAt is supplied by the caller so that the transformation itself
// stays deterministic: two calls with identical input differ only in the
// timestamp handed in.
//
// A missing or malformed source URL is a normalization failure; the caller
// treats it like any other per-page failure.
func Normalize(raw crawl.RawPageResult, siteID string, crawledAt time.Time) (crawl.PageRecord, error) {
	pageURL, err := parseSourceURL(raw.Metadata.SourceURL)
	if err != nil {
		return crawl.PageRecord{}, err
	}

	pagePath := pageURL.Path
	if pagePath == "" {
		pagePath = "/"
	}

	title := strings.TrimSpace(raw.Metadata.Title)
	description := strings.TrimSpace(raw.Metadata.Description)
	if title == "" || description == "" {
		docTitle, docDescription := extractFromHTML(firstNonEmpty(raw.HTML, raw.RawHTML))
		if title == "" {
			title = docTitle
		}
		if description == "" {
			description = docDescription
		}
	}

	internal, external := PartitionLinks(raw.Links, pageURL, pageURL.Hostname())

	return crawl.PageRecord{
		SiteID:      siteID,
		URL:         pageURL.String(),
		Path:        pagePath,
		Title:       title,
		HTMLContent: raw.RawHTML,
		CleanedHTML: raw.HTML,
		MainContent: CleanMarkdown(raw.Markdown),
		Headings:    ExtractHeadings(raw.Markdown),
		MetaTags: crawl.MetaTags{
			Description:   description,
			Keywords:      strings.TrimSpace(raw.Metadata.Keywords),
			OGTitle:       strings.TrimSpace(raw.Metadata.OGTitle),
			OGDescription: strings.TrimSpace(raw.Metadata.OGDescription),
			OGImage:       strings.TrimSpace(raw.Metadata.OGImage),
		},
		LinksInternal: internal,
		LinksExternal: external,
		StatusCode:    raw.Metadata.StatusCode,
		CrawledAt:     crawledAt,
	}, nil
}

func parseSourceURL(source string) (*url.URL, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, fmt.Errorf("result has no source url")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse source url %q: %w", trimmed, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("source url %q is not absolute", trimmed)
	}
	return u, nil
}

// extractFromHTML pulls <title> and the description meta tag out of the
// page HTML. Used only when the engine metadata left those fields empty.
func extractFromHTML(html string) (title, description string) {
	if strings.TrimSpace(html) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	description, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	return title, strings.TrimSpace(description)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
