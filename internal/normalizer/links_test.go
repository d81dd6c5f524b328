package normalizer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestPartitionLinksSplitsByDomain(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://x.com/a")
	internal, external := PartitionLinks(
		[]string{"/b", "https://other.com/c", "not a url"},
		base,
		"x.com",
	)

	require.Equal(t, []string{"/b"}, internal)
	require.Equal(t, []string{"https://other.com/c"}, external)
}

func TestPartitionLinksPreservesOrderAndMultiplicity(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://x.com/")
	internal, external := PartitionLinks(
		[]string{"/one", "https://ext.com/a", "/one", "/two", "https://ext.com/a"},
		base,
		"x.com",
	)

	require.Equal(t, []string{"/one", "/one", "/two"}, internal)
	require.Equal(t, []string{"https://ext.com/a", "https://ext.com/a"}, external)
}

func TestPartitionLinksResolvesRelativeReferences(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://x.com/blog/post")
	internal, external := PartitionLinks(
		[]string{"../about", "contact", "//cdn.x.com/logo.png", "#section"},
		base,
		"x.com",
	)

	// Fragment-only links resolve back onto the page itself.
	require.Equal(t, []string{"/about", "/blog/contact", "/blog/post"}, internal)
	require.Equal(t, []string{"//cdn.x.com/logo.png"}, external)
}

func TestPartitionLinksEmptyHostGoesExternal(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://x.com/a")
	internal, external := PartitionLinks([]string{"mailto:team@x.com"}, base, "x.com")

	require.Empty(t, internal)
	require.Equal(t, []string{"mailto:team@x.com"}, external)
}

func TestPartitionLinksDropsBlankEntries(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://x.com/a")
	internal, external := PartitionLinks([]string{"", "   "}, base, "x.com")

	require.Empty(t, internal)
	require.Empty(t, external)
}
