// Package exclusion decides whether a discovered URL is eligible as a
// content candidate. The filter is a pure function over the candidate URL,
// the crawl's base URL and the crawl context; it performs no I/O.
package exclusion

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/urlutil"
)

// mediaExtensions are file suffixes that can never be long-form content.
// PDFs are handled separately because a library context treats them as
// valid content.
var mediaExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico",
	".zip", ".tar", ".gz", ".rar", ".7z",
	".exe", ".dmg", ".pkg", ".msi",
	".mp4", ".mov", ".avi", ".webm", ".mp3", ".wav",
	".css", ".js", ".json", ".woff", ".woff2", ".ttf",
}

// cdnSubdomains mark static-asset hosts that only ever serve media.
var cdnSubdomains = []string{
	"cdn.", "static.", "assets.", "media.", "img.", "images.",
}

// listingQueryParams indicate filtered or re-sorted views of a listing
// rather than individual content pages.
var listingQueryParams = []string{
	"category", "categories", "tag", "tags", "topic", "author",
	"search", "q", "s", "sort", "order", "filter", "filters",
}

// paginationQueryParams are tolerated in library context because paginated
// library listings still host per-item links worth following.
var paginationQueryParams = []string{"page", "p", "offset", "start"}

// listingPathSegments are taxonomy listings (/category/seo, /tag/go) that
// duplicate content reachable through the main listing.
var listingPathSegments = []string{
	"category", "categories", "tag", "tags", "topic", "topics", "author",
}

// alwaysDenySubstrings are excluded in every context: admin panels, auth
// flows, legal pages, feeds, sitemaps.
var alwaysDenySubstrings = []string{
	"/wp-admin", "/wp-login", "/admin", "/login", "/signin", "/sign-in",
	"/signup", "/sign-up", "/register", "/logout", "/account", "/my-account",
	"/cart", "/checkout",
	"/privacy", "/terms", "/legal", "/cookie-policy", "/gdpr", "/imprint",
	"/feed", "/rss", "/atom", "/sitemap",
	"/search", "/404", "/unsubscribe",
}

// nonHTTPSchemes can never resolve to a page at all.
var nonHTTPSchemes = []string{"mailto:", "tel:", "javascript:"}

// blogDenySubstrings are product, marketing and company paths that are
// noise on a blog crawl but must stay allowed in library context, where
// /resources/, /whitepaper/ and /webinar/ are legitimate content paths.
var blogDenySubstrings = []string{
	"/product", "/products", "/solution", "/solutions", "/pricing",
	"/plans", "/features", "/integrations", "/partners", "/customers",
	"/careers", "/jobs", "/about", "/team", "/contact", "/demo",
	"/press", "/events", "/webinar", "/whitepaper", "/resources",
	"/templates", "/glossary", "/comparison", "/vs-", "/alternatives",
}

var (
	// localePrefixRe matches a two-letter language code, optionally with a
	// region, as the first path segment: /de/, /fr-ca/, /pt_BR/.
	localePrefixRe = regexp.MustCompile(`^/([a-z]{2})(?:[-_][a-zA-Z]{2})?(?:/|$)`)

	// numericSlugRe matches a final path segment that is digits only, a
	// common shape for unpublished or draft posts.
	numericSlugRe = regexp.MustCompile(`^[0-9]+$`)

	// dateArchiveRe matches date-only archive paths such as /2024/ and
	// /2024/01/.
	dateArchiveRe = regexp.MustCompile(`^/(19|20)[0-9]{2}(/(0?[1-9]|1[0-2]))?/?$`)
)

// IsExcluded reports whether candidateURL should be dropped before any
// network round-trip is spent on it. Rules are applied in order; the first
// match wins. Any URL-parse failure excludes the candidate.
func IsExcluded(candidateURL, baseURL string, crawlCtx blogscout.Context) bool {
	cand, err := url.Parse(urlutil.Normalize(candidateURL))
	if err != nil || cand.Hostname() == "" {
		return true
	}
	base, err := url.Parse(urlutil.Normalize(baseURL))
	if err != nil {
		return true
	}

	lowerRaw := strings.ToLower(candidateURL)
	for _, scheme := range nonHTTPSchemes {
		if strings.HasPrefix(lowerRaw, scheme) {
			return true
		}
	}

	// Rule 1: cross-domain links.
	if !urlutil.SameSite(candidateURL, baseURL) {
		return true
	}

	path := strings.ToLower(cand.Path)

	// Rule 2: locale mismatch against the base URL's path.
	if localeMismatch(path, strings.ToLower(base.Path)) {
		return true
	}

	// Rule 3: binary/media extensions; PDFs only outside library context.
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	if strings.HasSuffix(path, ".pdf") && crawlCtx != blogscout.ContextLibrary {
		return true
	}

	// Rule 4: CDN/static-asset subdomains.
	host := strings.ToLower(cand.Hostname())
	for _, prefix := range cdnSubdomains {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}

	// Rule 5: listing/filtering query parameters. Pagination params are
	// tolerated in library context.
	if hasListingQuery(cand.Query(), crawlCtx) {
		return true
	}

	// Rule 6: universal deny-list.
	for _, deny := range alwaysDenySubstrings {
		if strings.Contains(path, deny) {
			return true
		}
	}

	segments := pathSegments(path)

	// Rule 7: blog-only deny-lists, covering marketing paths and taxonomy
	// listings.
	if crawlCtx == blogscout.ContextBlog {
		for _, deny := range blogDenySubstrings {
			if strings.Contains(path, deny) {
				return true
			}
		}
		for _, segment := range segments {
			for _, listing := range listingPathSegments {
				if segment == listing {
					return true
				}
			}
		}
	}

	// Rule 8: numeric-only slugs.
	if len(segments) > 0 && numericSlugRe.MatchString(segments[len(segments)-1]) {
		// Date archives are handled by rule 9; a lone trailing number is
		// rejected here regardless.
		if !dateArchiveRe.MatchString(path) {
			return true
		}
	}

	// Rule 9: date-only archive paths.
	if dateArchiveRe.MatchString(path) {
		return true
	}

	// Rule 10: a single very short path segment is a navigation page, not a
	// post, in blog context.
	if crawlCtx == blogscout.ContextBlog && len(segments) == 1 && len(segments[0]) < 10 {
		return true
	}

	return false
}

// localeMismatch reports whether the candidate and base paths disagree on
// language prefix: a prefix only one side carries, or two different
// prefixes. A crawl rooted at one locale must not vacuum up its translated
// mirrors, and the unprefixed tree is just another mirror when the base is
// prefixed.
func localeMismatch(candPath, basePath string) bool {
	return localePrefix(candPath) != localePrefix(basePath)
}

func localePrefix(path string) string {
	m := localePrefixRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

func hasListingQuery(values url.Values, crawlCtx blogscout.Context) bool {
	for key := range values {
		lower := strings.ToLower(key)
		for _, param := range listingQueryParams {
			if lower == param {
				return true
			}
		}
		for _, param := range paginationQueryParams {
			if lower == param && crawlCtx == blogscout.ContextBlog {
				return true
			}
		}
	}
	return false
}

func pathSegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
