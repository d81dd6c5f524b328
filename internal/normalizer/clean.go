package normalizer

import (
	"regexp"
	"strings"

	"github.com/pagemill/pagemill/internal/crawl"
)

var (
	headingLine   = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	imageOnlyLine = regexp.MustCompile(`^!\[[^\]]*\]\([^)]*\)$`)
	ctaWordLine   = regexp.MustCompile(`(?i)^(call|book|schedule)\b`)
	discountLine  = regexp.MustCompile(`^\[[^\]]*\d+\s*%[^\]]*\]\([^)]*\)`)
	newlineRuns   = regexp.MustCompile(`\n{3,}`)
)

// footerPatterns is evaluated in order during the backward trailing scan.
// The order is part of the trimming behavior and must not be rearranged.
var footerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(©|\(c\)\s*\d{4}|\bcopyright\b)`),
	regexp.MustCompile(`(?i)all rights reserved`),
	regexp.MustCompile(`(?i)powered by (wordpress|wix|squarespace|shopify|webflow|weebly|godaddy|duda)`),
	regexp.MustCompile(`(?i)privacy policy`),
	regexp.MustCompile(`(?i)terms of (service|use)`),
	regexp.MustCompile(`(?i)follow us`),
	regexp.MustCompile(`(?i)^[\[\s]*(facebook|twitter|instagram|linkedin|youtube|tiktok|pinterest)[\]\s]*(\([^)]*\))?$`),
}

func isFooterLine(line string) bool {
	for _, re := range footerPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func isPromoLine(line string) bool {
	return ctaWordLine.MatchString(line) || discountLine.MatchString(line)
}

// CleanMarkdown reduces scraped markdown to its main content:
//
//  1. Content starts at the first heading line; with no heading, nothing is
//     trimmed from the top.
//  2. Trailing footer noise (copyright, legal links, social prompts,
//     platform branding) is stripped by scanning backward from the last
//     line. Blank lines are skipped without breaking the match chain; the
//     scan stops permanently at the first non-blank line that matches no
//     footer pattern.
//  3. Image-only lines and promotional call-to-action lines are dropped
//     from the retained range.
//  4. Runs of three or more newlines collapse to two, and the result is
//     trimmed.
//
// The function is pure and idempotent; empty or all-noise input yields "".
func CleanMarkdown(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	lines := strings.Split(markdown, "\n")

	start := 0
	for i, line := range lines {
		if headingLine.MatchString(line) {
			start = i
			break
		}
	}

	end := len(lines)
	for i := len(lines) - 1; i >= start; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if isFooterLine(trimmed) {
			end = i
			continue
		}
		break
	}

	kept := make([]string, 0, end-start)
	for _, line := range lines[start:end] {
		trimmed := strings.TrimSpace(line)
		if imageOnlyLine.MatchString(trimmed) || isPromoLine(trimmed) {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	out = newlineRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// ExtractHeadings scans markdown line by line and returns every ATX heading
// (1-6 leading '#', at least one space, then text) in document order. The
// result is empty when no headings exist.
func ExtractHeadings(markdown string) []crawl.Heading {
	var headings []crawl.Heading
	for _, line := range strings.Split(markdown, "\n") {
		m := headingLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headings = append(headings, crawl.Heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
		})
	}
	return headings
}
