// Package blogscout discovers the individual article pages linked from a
// blog or resource listing page and returns a deduplicated set of
// {url, title, published date} records suitable for downstream ingestion.
//
// The package holds the shared data model and configuration; the actual
// pipeline lives in the crawl subpackage.
package blogscout

import (
	"strings"
	"time"
)

// Candidate is a discovered link that has not yet been confirmed to be an
// article. URL is always absolute and normalized; PublishedDate is a calendar
// date (midnight UTC) or nil when no date could be resolved.
type Candidate struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
}

// ValidationResult is the outcome of fetching and classifying one candidate.
// It is created once per candidate and never mutated afterwards.
type ValidationResult struct {
	// IsArticle reports the classification. Only meaningful when
	// Inconclusive is false.
	IsArticle bool

	// Inconclusive is set when the fetch failed: absence of proof is not
	// proof of absence, so the candidate passes through unchanged.
	Inconclusive bool

	// SchemaTypes holds the lower-cased structured-data type names found on
	// the page, empty if none.
	SchemaTypes []string

	// PublishedDate is the page-derived date; it takes priority over a
	// URL-derived one.
	PublishedDate *time.Time

	// Title is the page-derived title; it replaces a link-text-derived title
	// when non-trivial.
	Title string
}

// Context distinguishes a crawl rooted at a pure blog from one rooted at a
// broader resource center. A library context relaxes several exclusion rules:
// PDFs and /resources/-style paths are legitimate content there.
type Context int

const (
	ContextBlog Context = iota
	ContextLibrary
)

// String returns the context name for logging.
func (c Context) String() string {
	if c == ContextLibrary {
		return "library"
	}
	return "blog"
}

// libraryPathMarkers are path substrings that indicate a resource-center
// listing rather than a blog.
var libraryPathMarkers = []string{
	"/resources", "/library", "/downloads", "/insights", "/learn",
}

// ContextForURL inspects a seed URL's path and decides which crawl context
// applies.
func ContextForURL(seedURL string) Context {
	lower := strings.ToLower(seedURL)
	for _, marker := range libraryPathMarkers {
		if strings.Contains(lower, marker) {
			return ContextLibrary
		}
	}
	return ContextBlog
}

// Config holds every threshold the pipeline's heuristics depend on. It is
// constructed once and passed explicitly into every component; nothing reads
// ambient global state.
type Config struct {
	// MinWordCount is the main-content word count above which a page counts
	// as long-form.
	MinWordCount int

	// MinTitleLength is the minimum accepted length for a title extracted
	// from surrounding markup. MinSlugTitleLength is the lower bar applied
	// to slug-derived titles, which came from the URL itself rather than
	// noisy surrounding text.
	MinTitleLength     int
	MinSlugTitleLength int

	// MaxPages caps the breadth-first pagination crawl.
	MaxPages int

	// MaxNoNewPages is the number of consecutive pagination pages yielding
	// zero new candidates after which the crawl stops.
	MaxNoNewPages int

	// MaxSitemapChildren caps recursion into a sitemap index.
	MaxSitemapChildren int

	// RawFallbackThreshold and ScrollFallbackThreshold gate the later
	// cascade tiers: raw fetch runs when fewer candidates were found than
	// the former, headless scrolling (outside library context) only below
	// the latter.
	RawFallbackThreshold    int
	ScrollFallbackThreshold int

	// FetchConcurrency is the validation worker-pool width.
	FetchConcurrency int

	// Retry policy for transient failures and 429 responses.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Per-tier timeouts. The rendering and browser tiers do more work per
	// call than a plain GET and get longer budgets.
	HTTPTimeout    time.Duration
	RenderTimeout  time.Duration
	BrowserTimeout time.Duration

	// Infinite-scroll bounds: maximum iterations, the number of consecutive
	// stable page heights that ends scrolling early, and the wait between
	// iterations.
	ScrollMaxIterations    int
	ScrollStableIterations int
	ScrollWait             time.Duration

	// UserAgent is sent on every plain HTTP request.
	UserAgent string

	// RenderEndpoint and RenderToken configure the remote content-rendering
	// service. An empty token disables that tier.
	RenderEndpoint string
	RenderToken    string

	// CachePath, when non-empty, enables the SQLite page cache; CacheTTL
	// bounds entry age.
	CachePath string
	CacheTTL  time.Duration
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		MinWordCount:            300,
		MinTitleLength:          10,
		MinSlugTitleLength:      5,
		MaxPages:                50,
		MaxNoNewPages:           2,
		MaxSitemapChildren:      25,
		RawFallbackThreshold:    20,
		ScrollFallbackThreshold: 5,
		FetchConcurrency:        5,
		MaxRetries:              3,
		RetryBaseDelay:          1 * time.Second,
		RetryMaxDelay:           30 * time.Second,
		HTTPTimeout:             15 * time.Second,
		RenderTimeout:           60 * time.Second,
		BrowserTimeout:          90 * time.Second,
		ScrollMaxIterations:     15,
		ScrollStableIterations:  3,
		ScrollWait:              2 * time.Second,
		UserAgent:               "blogscout/1.0 (content discovery pipeline)",
		CacheTTL:                24 * time.Hour,
	}
}

// Date builds a calendar date at midnight UTC. Published dates carry no time
// component anywhere in the pipeline.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
