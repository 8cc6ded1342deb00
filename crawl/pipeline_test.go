package crawl

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/discover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiscoverer returns a canned candidate list, recording the request it
// was given.
type fakeDiscoverer struct {
	candidates []blogscout.Candidate
	err        error
	lastReq    discover.Request
}

func (f *fakeDiscoverer) Discover(_ context.Context, req discover.Request) ([]blogscout.Candidate, error) {
	f.lastReq = req
	return f.candidates, f.err
}

// fakeValidator maps URLs onto programmed results; unmapped URLs validate
// as articles. The dates map backs the date-only pass.
type fakeValidator struct {
	results   map[string]blogscout.ValidationResult
	dates     map[string]*time.Time
	calls     int
	dateCalls int
}

func (f *fakeValidator) ValidateAll(_ context.Context, candidates []blogscout.Candidate) []blogscout.ValidationResult {
	f.calls++
	results := make([]blogscout.ValidationResult, len(candidates))
	for i, candidate := range candidates {
		if result, ok := f.results[candidate.URL]; ok {
			results[i] = result
		} else {
			results[i] = blogscout.ValidationResult{IsArticle: true}
		}
	}
	return results
}

func (f *fakeValidator) DatesAll(_ context.Context, candidates []blogscout.Candidate) []*time.Time {
	f.dateCalls++
	dates := make([]*time.Time, len(candidates))
	for i, candidate := range candidates {
		if candidate.PublishedDate != nil {
			dates[i] = candidate.PublishedDate
			continue
		}
		dates[i] = f.dates[candidate.URL]
	}
	return dates
}

func testPipeline(d Discoverer, v CandidateValidator) *Pipeline {
	return NewWithComponents(blogscout.DefaultConfig(), log.New(io.Discard), d, v)
}

func candidatesFor(urls ...string) []blogscout.Candidate {
	candidates := make([]blogscout.Candidate, len(urls))
	for i, u := range urls {
		candidates[i] = blogscout.Candidate{URL: u, Title: "A perfectly fine title"}
	}
	return candidates
}

// TestPipeline_ListingSeedSkipsValidation: a /blog seed trusts discovery and
// never spends fetches on validation.
func TestPipeline_ListingSeedSkipsValidation(t *testing.T) {
	d := &fakeDiscoverer{candidates: candidatesFor(
		"https://example.com/blog/post-one",
		"https://example.com/blog/post-two",
	)}
	v := &fakeValidator{}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/blog", Options{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Zero(t, v.calls)
}

// TestPipeline_ListingSeedEnrichesMissingDates: skipping validation still
// resolves dates for candidates whose URL carried none.
func TestPipeline_ListingSeedEnrichesMissingDates(t *testing.T) {
	pageDate := blogscout.Date(2024, time.June, 1)
	d := &fakeDiscoverer{candidates: candidatesFor("https://example.com/blog/undated-post")}
	v := &fakeValidator{dates: map[string]*time.Time{
		"https://example.com/blog/undated-post": &pageDate,
	}}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/blog", Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].PublishedDate)
	assert.Equal(t, pageDate, *got[0].PublishedDate)
	assert.Equal(t, 1, v.dateCalls)
	assert.Zero(t, v.calls)
}

// TestPipeline_ListingSeedRangeAppliesToEnrichedDates: a page-only date
// outside the requested range still excludes the candidate.
func TestPipeline_ListingSeedRangeAppliesToEnrichedDates(t *testing.T) {
	pageDate := blogscout.Date(2015, time.June, 1)
	start := blogscout.Date(2020, time.January, 1)
	d := &fakeDiscoverer{candidates: candidatesFor(
		"https://example.com/blog/old-post",
		"https://example.com/blog/still-undated",
	)}
	v := &fakeValidator{dates: map[string]*time.Time{
		"https://example.com/blog/old-post": &pageDate,
	}}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/blog", Options{
		DateRangeStart: &start,
	})
	require.NoError(t, err)
	// Undated candidates are kept; the dated out-of-range one is dropped
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/blog/still-undated", got[0].URL)
}

// TestPipeline_NonListingSeedValidates: other seeds run every candidate
// through the validator.
func TestPipeline_NonListingSeedValidates(t *testing.T) {
	d := &fakeDiscoverer{candidates: candidatesFor("https://example.com/posts/post-one")}
	v := &fakeValidator{}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/posts", Options{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, v.calls)
}

// TestPipeline_DropsConclusiveNonArticles: a conclusive "not an article"
// verdict removes the candidate; inconclusive ones survive untouched.
func TestPipeline_DropsConclusiveNonArticles(t *testing.T) {
	d := &fakeDiscoverer{candidates: candidatesFor(
		"https://example.com/posts/real-article",
		"https://example.com/posts/product-page",
		"https://example.com/posts/unreachable",
	)}
	v := &fakeValidator{results: map[string]blogscout.ValidationResult{
		"https://example.com/posts/product-page": {IsArticle: false},
		"https://example.com/posts/unreachable":  {Inconclusive: true},
	}}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/posts", Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/posts/real-article", got[0].URL)
	assert.Equal(t, "https://example.com/posts/unreachable", got[1].URL)
}

// TestPipeline_MergesPageMetadata: page-derived title and date override the
// link-derived ones.
func TestPipeline_MergesPageMetadata(t *testing.T) {
	urlDate := blogscout.Date(2023, time.January, 5)
	pageDate := blogscout.Date(2023, time.March, 17)
	d := &fakeDiscoverer{candidates: []blogscout.Candidate{{
		URL:           "https://example.com/posts/some-post",
		Title:         "Slug Derived Title",
		PublishedDate: &urlDate,
	}}}
	v := &fakeValidator{results: map[string]blogscout.ValidationResult{
		"https://example.com/posts/some-post": {
			IsArticle:     true,
			Title:         "The Real Headline From The Page",
			PublishedDate: &pageDate,
		},
	}}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/posts", Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "The Real Headline From The Page", got[0].Title)
	require.NotNil(t, got[0].PublishedDate)
	assert.Equal(t, pageDate, *got[0].PublishedDate)
}

// TestPipeline_ShortPageTitleDoesNotOverride: a trivial page title never
// replaces a usable link-derived one.
func TestPipeline_ShortPageTitleDoesNotOverride(t *testing.T) {
	d := &fakeDiscoverer{candidates: []blogscout.Candidate{{
		URL:   "https://example.com/posts/some-post",
		Title: "Slug Derived Title",
	}}}
	v := &fakeValidator{results: map[string]blogscout.ValidationResult{
		"https://example.com/posts/some-post": {IsArticle: true, Title: "Home"},
	}}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/posts", Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Slug Derived Title", got[0].Title)
}

// TestPipeline_MaxPostsAppliedAfterValidation: dropped candidates do not
// count against the cap.
func TestPipeline_MaxPostsAppliedAfterValidation(t *testing.T) {
	d := &fakeDiscoverer{candidates: candidatesFor(
		"https://example.com/posts/a-post",
		"https://example.com/posts/product",
		"https://example.com/posts/b-post",
		"https://example.com/posts/c-post",
	)}
	v := &fakeValidator{results: map[string]blogscout.ValidationResult{
		"https://example.com/posts/product": {IsArticle: false},
	}}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/posts", Options{MaxPosts: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/posts/a-post", got[0].URL)
	assert.Equal(t, "https://example.com/posts/b-post", got[1].URL)
}

// TestPipeline_EnrichedDateOutsideRangeDrops: a date revealed only by
// validation still has to satisfy the requested range.
func TestPipeline_EnrichedDateOutsideRangeDrops(t *testing.T) {
	revealed := blogscout.Date(2015, time.June, 1)
	start := blogscout.Date(2020, time.January, 1)
	d := &fakeDiscoverer{candidates: candidatesFor("https://example.com/posts/old-post")}
	v := &fakeValidator{results: map[string]blogscout.ValidationResult{
		"https://example.com/posts/old-post": {
			IsArticle:     true,
			PublishedDate: &revealed,
		},
	}}
	p := testPipeline(d, v)

	got, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/posts", Options{
		DateRangeStart: &start,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestPipeline_DiscoveryErrorSurfaces: an unreachable seed is the one hard
// failure.
func TestPipeline_DiscoveryErrorSurfaces(t *testing.T) {
	d := &fakeDiscoverer{err: discover.ErrSeedUnreachable}
	p := testPipeline(d, &fakeValidator{})

	_, err := p.ExtractBlogPostURLs(context.Background(), "https://example.com/posts", Options{})
	assert.True(t, errors.Is(err, discover.ErrSeedUnreachable))
}

// TestPipeline_InvalidSeedRejected: garbage that cannot become a URL fails
// before any network work.
func TestPipeline_InvalidSeedRejected(t *testing.T) {
	p := testPipeline(&fakeDiscoverer{}, &fakeValidator{})

	_, err := p.ExtractBlogPostURLs(context.Background(), "   ", Options{})
	assert.Error(t, err)
}

// TestPipeline_NormalizesSeed: a bare domain gains a scheme before the
// request reaches discovery.
func TestPipeline_NormalizesSeed(t *testing.T) {
	d := &fakeDiscoverer{}
	p := testPipeline(d, &fakeValidator{})

	start := blogscout.Date(2024, time.January, 1)
	_, err := p.ExtractBlogPostURLs(context.Background(), "example.com/news", Options{
		MaxPosts:       7,
		DateRangeStart: &start,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/news", d.lastReq.SeedURL)
	assert.Equal(t, blogscout.ContextBlog, d.lastReq.Context)
	assert.Equal(t, 7, d.lastReq.MaxPosts)
	require.NotNil(t, d.lastReq.DateRangeStart)
	assert.Equal(t, time.January, d.lastReq.DateRangeStart.Month())
}
