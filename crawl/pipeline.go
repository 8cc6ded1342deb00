// Package crawl ties the discovery cascade, exclusion filter and page
// validator into the pipeline's public entry point.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/discover"
	"github.com/pevans/blogscout/fetch"
	"github.com/pevans/blogscout/urlutil"
	"github.com/pevans/blogscout/validate"
)

// Discoverer produces candidates for a seed; the discovery cascade is the
// production implementation.
type Discoverer interface {
	Discover(ctx context.Context, req discover.Request) ([]blogscout.Candidate, error)
}

// CandidateValidator classifies a batch of candidates, preserving order.
// DatesAll is the cheaper date-only pass used when classification can be
// skipped; its result slice is position-aligned with the input.
type CandidateValidator interface {
	ValidateAll(ctx context.Context, candidates []blogscout.Candidate) []blogscout.ValidationResult
	DatesAll(ctx context.Context, candidates []blogscout.Candidate) []*time.Time
}

// Options bound one pipeline invocation.
type Options struct {
	// MaxPosts caps the returned list; zero means no cap.
	MaxPosts int

	// DateRangeStart and DateRangeEnd drop candidates whose resolved date
	// falls outside the range. Undated candidates are always kept.
	DateRangeStart *time.Time
	DateRangeEnd   *time.Time
}

// Pipeline is the top-level coordinator. All state is scoped to one
// invocation; a Pipeline is safe to reuse across crawls.
type Pipeline struct {
	cfg       blogscout.Config
	logger    *log.Logger
	discover  Discoverer
	validator CandidateValidator
	cache     *fetch.PageCache
}

// New wires the production pipeline: a raw HTTP client (with the page
// cache when configured), the rendering-service client, the headless
// browser, the strategy cascade over all three, and the pooled validator.
func New(cfg blogscout.Config, logger *log.Logger) (*Pipeline, error) {
	client := fetch.NewClient(cfg, logger)

	var cache *fetch.PageCache
	if cfg.CachePath != "" {
		var err error
		cache, err = fetch.NewPageCache(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open page cache: %w", err)
		}
		client.WithCache(cache)
	}

	var renderer discover.Renderer
	if cfg.RenderToken != "" && cfg.RenderEndpoint != "" {
		renderer = fetch.NewRenderer(cfg, logger)
	}

	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		discover:  discover.NewCascade(cfg, logger, client, renderer, fetch.NewBrowser(cfg, logger)),
		validator: validate.New(cfg, logger, client),
		cache:     cache,
	}, nil
}

// NewWithComponents builds a pipeline over explicit discovery and
// validation implementations.
func NewWithComponents(cfg blogscout.Config, logger *log.Logger, d Discoverer, v CandidateValidator) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger, discover: d, validator: v}
}

// Close releases pipeline resources.
func (p *Pipeline) Close() error {
	if p.cache != nil {
		return p.cache.Close()
	}
	return nil
}

// ExtractBlogPostURLs discovers, filters and validates the article pages
// linked from seedURL, returning deduplicated records in discovery order.
// Partial discovery always returns whatever was found; an error is
// reserved for a seed that cannot be parsed or reached by any strategy.
func (p *Pipeline) ExtractBlogPostURLs(ctx context.Context, seedURL string, opts Options) ([]blogscout.Candidate, error) {
	seed := urlutil.Normalize(seedURL)
	parsed, err := url.Parse(seed)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid seed URL %q", seedURL)
	}

	crawlCtx := blogscout.ContextForURL(seed)
	logger := p.logger.With("run", uuid.NewString(), "seed", seed, "context", crawlCtx)
	logger.Info("starting discovery", "max_posts", opts.MaxPosts)

	candidates, err := p.discover.Discover(ctx, discover.Request{
		SeedURL:        seed,
		Context:        crawlCtx,
		MaxPosts:       opts.MaxPosts,
		DateRangeStart: opts.DateRangeStart,
		DateRangeEnd:   opts.DateRangeEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed for %s: %w", seed, err)
	}
	logger.Info("discovery finished", "candidates", len(candidates))

	if isListingSeed(parsed) {
		// A seed that is explicitly a blog listing already vouches for its
		// links, so classification is skipped. Candidates whose URL carried
		// no date still get one fetch each, date extraction only.
		logger.Info("seed is a blog listing, skipping validation")
		dates := p.validator.DatesAll(ctx, candidates)

		var enriched []blogscout.Candidate
		for i, candidate := range candidates {
			if candidate.PublishedDate == nil {
				candidate.PublishedDate = dates[i]
			}
			if !p.inDateRange(candidate.PublishedDate, opts) {
				continue
			}
			enriched = append(enriched, candidate)
		}
		return p.cap(enriched, opts), nil
	}

	results := p.validator.ValidateAll(ctx, candidates)

	var validated []blogscout.Candidate
	for i, candidate := range candidates {
		merged, keep := p.merge(candidate, results[i])
		if !keep {
			continue
		}
		if !p.inDateRange(merged.PublishedDate, opts) {
			continue
		}
		validated = append(validated, merged)
	}
	logger.Info("validation finished",
		"validated", len(validated), "dropped", len(candidates)-len(validated))

	return p.cap(validated, opts), nil
}

// merge folds a validation result into its candidate. An inconclusive
// result keeps the candidate untouched; a conclusive non-article drops it;
// page-derived title and date beat the link-derived ones when present.
func (p *Pipeline) merge(candidate blogscout.Candidate, result blogscout.ValidationResult) (blogscout.Candidate, bool) {
	if result.Inconclusive {
		return candidate, true
	}
	if !result.IsArticle {
		return candidate, false
	}

	if result.PublishedDate != nil {
		candidate.PublishedDate = result.PublishedDate
	}
	if len(result.Title) >= p.cfg.MinTitleLength {
		candidate.Title = result.Title
	} else if candidate.Title == "" {
		candidate.Title = result.Title
	}
	return candidate, true
}

func (p *Pipeline) inDateRange(date *time.Time, opts Options) bool {
	if date == nil {
		return true
	}
	if opts.DateRangeStart != nil && date.Before(*opts.DateRangeStart) {
		return false
	}
	if opts.DateRangeEnd != nil && date.After(*opts.DateRangeEnd) {
		return false
	}
	return true
}

// cap applies the final maxPosts limit, after validation has had its
// chance to shrink the set.
func (p *Pipeline) cap(candidates []blogscout.Candidate, opts Options) []blogscout.Candidate {
	if opts.MaxPosts > 0 && len(candidates) > opts.MaxPosts {
		return candidates[:opts.MaxPosts]
	}
	return candidates
}

// isListingSeed reports whether the seed path marks an explicit blog
// listing page.
func isListingSeed(parsed *url.URL) bool {
	return strings.Contains(strings.ToLower(parsed.Path), "/blog")
}
