package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	numericOnlyRe = regexp.MustCompile(`^[0-9]+$`)
	bareDateRe    = regexp.MustCompile(`^(?:19|20)\d{2}(?:[-/]\d{1,2}){0,2}$`)
	separatorRe   = regexp.MustCompile(`[-_+]+`)
)

// genericLinkPhrases are anchor texts that carry no information about the
// linked article. Matching is case-insensitive after trimming arrows and
// punctuation.
var genericLinkPhrases = map[string]bool{
	"read more": true, "learn more": true, "read article": true,
	"read post": true, "continue reading": true, "view more": true,
	"more": true, "view all": true, "see more": true, "details": true,
	"click here": true, "here": true, "link": true, "download": true,
	"register": true, "watch now": true, "get started": true,
	"read the full article": true, "full story": true,
}

// TitleFromURL derives a human title from the last non-empty path segment
// of a URL. It returns "" when the segment is purely numeric or a bare
// date, since those slugs carry no usable title.
func TitleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segment := ""
	for _, part := range strings.Split(parsed.Path, "/") {
		if part != "" {
			segment = part
		}
	}
	if segment == "" {
		return ""
	}

	if decoded, err := url.PathUnescape(segment); err == nil {
		segment = decoded
	}
	segment = strings.TrimSuffix(segment, path.Ext(segment))

	if numericOnlyRe.MatchString(segment) || bareDateRe.MatchString(segment) {
		return ""
	}

	words := strings.Fields(separatorRe.ReplaceAllString(segment, " "))
	for i, word := range words {
		words[i] = capitalize(word)
	}
	return strings.Join(words, " ")
}

// IsGenericLinkText reports whether anchor text is a call-to-action phrase
// ("Read more") rather than a title.
func IsGenericLinkText(text string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.Trim(cleaned, "→›»>.…! ")
	cleaned = strings.TrimSpace(cleaned)
	return genericLinkPhrases[cleaned]
}

// CollapseWhitespace reduces any run of whitespace to a single space and
// trims the ends. Extracted titles pass through this before any length
// check.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
