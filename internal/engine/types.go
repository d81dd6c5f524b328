package engine

import "github.com/pagemill/pagemill/internal/crawl"

// Wire formats requested for every crawled page. The normalizer needs
// markdown plus both HTML variants and the raw link list.
var defaultFormats = []string{"markdown", "html", "rawHtml", "links"}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	Timeout         int      `json:"timeout,omitempty"`
}

type crawlRequestBody struct {
	URL           string        `json:"url"`
	Limit         int           `json:"limit"`
	ExcludePaths  []string      `json:"excludePaths,omitempty"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type crawlResponseBody struct {
	Status string                `json:"status"`
	Total  int                   `json:"total"`
	Data   []crawl.RawPageResult `json:"data"`
}

type scrapeRequestBody struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	Timeout         int      `json:"timeout,omitempty"`
}

type scrapeResponseBody struct {
	Success bool                `json:"success"`
	Data    crawl.RawPageResult `json:"data"`
}
