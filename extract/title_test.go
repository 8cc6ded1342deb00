package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTitleFromURL verifies slug-to-title derivation
func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"hyphenated slug", "https://example.com/blog/how-to-scale-search", "How To Scale Search"},
		{"underscores", "https://example.com/blog/release_notes_v2", "Release Notes V2"},
		{"trailing slash", "https://example.com/blog/launch-day/", "Launch Day"},
		{"html extension", "https://example.com/blog/launch-day.html", "Launch Day"},
		{"numeric slug rejected", "https://example.com/blog/123456", ""},
		{"bare date rejected", "https://example.com/2024-01-15", ""},
		{"empty path", "https://example.com/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromURL(tt.url))
		})
	}
}

// TestIsGenericLinkText verifies call-to-action phrases are recognized
func TestIsGenericLinkText(t *testing.T) {
	assert.True(t, IsGenericLinkText("Read more"))
	assert.True(t, IsGenericLinkText("  READ MORE →"))
	assert.True(t, IsGenericLinkText("Learn more"))
	assert.False(t, IsGenericLinkText("How we rebuilt our ingest pipeline"))
}

// TestCollapseWhitespace verifies whitespace normalization
func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c "))
}
