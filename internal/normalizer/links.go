package normalizer

import (
	"net/url"
	"strings"
)

// PartitionLinks resolves each raw link against pageURL and splits the
// result by hostname: links on domain contribute their path to the internal
// list, everything else keeps its original raw string in the external list.
// Malformed entries are silently dropped. Order and multiplicity of the
// input are preserved; no deduplication is performed.
func PartitionLinks(links []string, pageURL *url.URL, domain string) (internal, external []string) {
	for _, raw := range links {
		resolved, ok := resolveLink(pageURL, raw)
		if !ok {
			continue
		}
		if strings.EqualFold(resolved.Hostname(), domain) {
			p := resolved.Path
			if p == "" {
				p = "/"
			}
			internal = append(internal, p)
		} else {
			external = append(external, raw)
		}
	}
	return internal, external
}

func resolveLink(base *url.URL, link string) (*url.URL, bool) {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t") {
		return nil, false
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(ref), true
}
