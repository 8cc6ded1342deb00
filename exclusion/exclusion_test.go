package exclusion

import (
	"testing"

	"github.com/pevans/blogscout"
	"github.com/stretchr/testify/assert"
)

const base = "https://example.com/blog"

// TestIsExcluded_Table runs the documented (url, base, context) triples
func TestIsExcluded_Table(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		base     string
		crawlCtx blogscout.Context
		want     bool
	}{
		{"cross domain", "https://other.com/blog/post-title", base, blogscout.ContextBlog, true},
		{"www mismatch tolerated", "https://www.example.com/blog/a-real-post-title", base, blogscout.ContextBlog, false},
		{"locale mismatch", "https://example.com/de/blog/post-title", base, blogscout.ContextBlog, true},
		{"matching no-locale", "https://example.com/blog/a-real-post-title", base, blogscout.ContextBlog, false},
		{"unprefixed mirror of localized base", "https://example.com/blog/post-title", "https://example.com/de/blog", blogscout.ContextBlog, true},
		{"localized base keeps same locale", "https://example.com/de/blog/post-title", "https://example.com/de/blog", blogscout.ContextBlog, false},
		{"differing locales", "https://example.com/fr/blog/post-title", "https://example.com/de/blog", blogscout.ContextBlog, true},
		{"image", "https://example.com/blog/hero.png", base, blogscout.ContextBlog, true},
		{"pdf in blog context", "https://example.com/blog/guide.pdf", base, blogscout.ContextBlog, true},
		{"pdf in library context", "https://example.com/resources/guide.pdf", "https://example.com/resources", blogscout.ContextLibrary, false},
		{"cdn subdomain", "https://cdn.example.com/blog/post-title-here", base, blogscout.ContextBlog, true},
		{"category query", "https://example.com/blog/post?category=seo", base, blogscout.ContextBlog, true},
		{"pagination query in blog", "https://example.com/blog?page=3", base, blogscout.ContextBlog, true},
		{"pagination query in library", "https://example.com/resources?page=3", "https://example.com/resources", blogscout.ContextLibrary, false},
		{"admin path", "https://example.com/wp-admin/options.php", base, blogscout.ContextBlog, true},
		{"legal path", "https://example.com/privacy-policy-update", base, blogscout.ContextBlog, true},
		{"category path blog", "https://example.com/category/seo", base, blogscout.ContextBlog, true},
		{"product path blog", "https://example.com/products/widget-pro", base, blogscout.ContextBlog, true},
		{"resources path blog", "https://example.com/resources/whitepaper-x", base, blogscout.ContextBlog, true},
		{"resources path library", "https://example.com/resources/whitepaper-x", "https://example.com/resources", blogscout.ContextLibrary, false},
		{"webinar path library", "https://example.com/webinar/scaling-search", "https://example.com/resources", blogscout.ContextLibrary, false},
		{"numeric slug", "https://example.com/blog/123456", base, blogscout.ContextBlog, true},
		{"year archive", "https://example.com/2024/", base, blogscout.ContextBlog, true},
		{"year month archive", "https://example.com/2024/01/", base, blogscout.ContextBlog, true},
		{"dated post kept", "https://example.com/2024/01/15/launch-announcement", base, blogscout.ContextBlog, false},
		{"short nav segment blog", "https://example.com/docs", base, blogscout.ContextBlog, true},
		{"short segment library", "https://example.com/docs", "https://example.com/resources", blogscout.ContextLibrary, false},
		{"unparseable", "https://example.com/%zz", base, blogscout.ContextBlog, true},
		{"mailto", "mailto:team@example.com", base, blogscout.ContextBlog, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExcluded(tt.url, tt.base, tt.crawlCtx))
		})
	}
}

// TestIsExcluded_CategoryQueryOrder verifies filtering queries lose even in
// library context
func TestIsExcluded_CategoryQueryOrder(t *testing.T) {
	assert.True(t, IsExcluded(
		"https://example.com/resources?category=guides",
		"https://example.com/resources", blogscout.ContextLibrary))
}

// TestLocalePrefix verifies language prefix detection
func TestLocalePrefix(t *testing.T) {
	assert.Equal(t, "de", localePrefix("/de/blog/post"))
	assert.Equal(t, "fr", localePrefix("/fr-ca/blog"))
	assert.Equal(t, "", localePrefix("/blog/post"))
	assert.Equal(t, "", localePrefix("/delivery/post"))
}

// TestContextForURL verifies seed context detection
func TestContextForURL(t *testing.T) {
	assert.Equal(t, blogscout.ContextLibrary, blogscout.ContextForURL("https://example.com/resources"))
	assert.Equal(t, blogscout.ContextLibrary, blogscout.ContextForURL("https://example.com/library/all"))
	assert.Equal(t, blogscout.ContextBlog, blogscout.ContextForURL("https://example.com/blog"))
}
