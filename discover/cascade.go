// Package discover implements the ordered cascade of discovery strategies:
// sitemap/RSS probing, rendered-page pagination crawling, a raw single-page
// fallback, and headless infinite scrolling for library listings.
package discover

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/exclusion"
	"github.com/pevans/blogscout/fetch"
)

// ErrSeedUnreachable is returned when every strategy failed to reach the
// seed URL and nothing at all was discovered. An empty result from a
// reachable seed is a valid outcome, not an error.
var ErrSeedUnreachable = errors.New("seed URL unreachable by every discovery strategy")

// Fetcher is the plain HTTP tier.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Renderer is the remote content-rendering tier.
type Renderer interface {
	Render(ctx context.Context, url string, opts fetch.RenderOptions) (string, error)
}

// Scroller is the headless-browser tier.
type Scroller interface {
	FetchScrolled(ctx context.Context, url string) (string, error)
}

// Request describes one discovery run.
type Request struct {
	SeedURL string
	Context blogscout.Context

	// MaxPosts caps the number of candidates collected; zero means no cap.
	MaxPosts int

	// DateRangeStart and DateRangeEnd filter candidates as they are
	// collected. A candidate with no resolvable date is kept; only a
	// resolved date outside the range excludes it.
	DateRangeStart *time.Time
	DateRangeEnd   *time.Time
}

func (r Request) target() int {
	if r.MaxPosts > 0 {
		return r.MaxPosts
	}
	return math.MaxInt
}

// Strategy is one interchangeable discovery approach. Applies gates whether
// the strategy is worth running given how many candidates earlier tiers
// already found.
type Strategy interface {
	Name() string
	Applies(req Request, found int) bool
	Discover(ctx context.Context, req Request, sink *Sink) error
}

// Sink accumulates candidates across strategies. It owns deduplication, the
// exclusion filter, the date-range filter and the maxPosts budget, so every
// strategy feeds it the same way. It also records whether any strategy
// managed to reach the seed page, which distinguishes an empty-but-valid
// result from a dead seed.
type Sink struct {
	req         Request
	seen        map[string]bool
	candidates  []blogscout.Candidate
	seedReached bool
}

// NewSink builds an empty sink for one request.
func NewSink(req Request) *Sink {
	return &Sink{req: req, seen: map[string]bool{}}
}

// Add filters and records one candidate. It reports false once the
// maxPosts budget is satisfied so callers can short-circuit.
func (s *Sink) Add(candidate blogscout.Candidate) bool {
	if s.Full() {
		return false
	}
	if candidate.URL == "" || s.seen[candidate.URL] {
		return true
	}
	s.seen[candidate.URL] = true

	if exclusion.IsExcluded(candidate.URL, s.req.SeedURL, s.req.Context) {
		return true
	}
	if !s.inDateRange(candidate.PublishedDate) {
		return true
	}

	s.candidates = append(s.candidates, candidate)
	return !s.Full()
}

// inDateRange keeps undated candidates: absence of a date is not grounds
// for exclusion.
func (s *Sink) inDateRange(date *time.Time) bool {
	if date == nil {
		return true
	}
	if s.req.DateRangeStart != nil && date.Before(*s.req.DateRangeStart) {
		return false
	}
	if s.req.DateRangeEnd != nil && date.After(*s.req.DateRangeEnd) {
		return false
	}
	return true
}

// Full reports whether the maxPosts budget is satisfied.
func (s *Sink) Full() bool {
	return len(s.candidates) >= s.req.target()
}

// Count returns how many candidates have been collected.
func (s *Sink) Count() int {
	return len(s.candidates)
}

// Candidates returns the collected candidates in discovery order.
func (s *Sink) Candidates() []blogscout.Candidate {
	return s.candidates
}

// MarkSeedReached records a successful fetch of the seed page.
func (s *Sink) MarkSeedReached() {
	s.seedReached = true
}

// Cascade runs strategies in priority order, each attempted only when the
// previous tiers produced fewer candidates than its gate requires.
type Cascade struct {
	cfg        blogscout.Config
	logger     *log.Logger
	strategies []Strategy
}

// NewCascade wires the standard strategy order over the three network
// tiers. Any tier may be nil, which simply drops its strategy.
func NewCascade(cfg blogscout.Config, logger *log.Logger, client Fetcher, renderer Renderer, browser Scroller) *Cascade {
	cascade := &Cascade{cfg: cfg, logger: logger}

	if client != nil {
		cascade.strategies = append(cascade.strategies, &SitemapStrategy{cfg: cfg, logger: logger, client: client})
	}
	if renderer != nil {
		cascade.strategies = append(cascade.strategies, &PaginationStrategy{cfg: cfg, logger: logger, renderer: renderer})
	}
	if client != nil {
		cascade.strategies = append(cascade.strategies, &RawPageStrategy{cfg: cfg, logger: logger, client: client})
	}
	if browser != nil {
		cascade.strategies = append(cascade.strategies, &ScrollStrategy{cfg: cfg, logger: logger, browser: browser})
	}
	return cascade
}

// NewCascadeFromStrategies builds a cascade over an explicit strategy list,
// useful in tests.
func NewCascadeFromStrategies(cfg blogscout.Config, logger *log.Logger, strategies ...Strategy) *Cascade {
	return &Cascade{cfg: cfg, logger: logger, strategies: strategies}
}

// Discover runs the cascade and returns the collected candidates in
// discovery order. Strategy failures are absorbed as "try the next thing";
// only a seed that no strategy could reach, with nothing discovered at all,
// becomes an error.
func (c *Cascade) Discover(ctx context.Context, req Request) ([]blogscout.Candidate, error) {
	sink := NewSink(req)
	var lastErr error

	for _, strategy := range c.strategies {
		if sink.Full() {
			break
		}
		if !strategy.Applies(req, sink.Count()) {
			continue
		}

		before := sink.Count()
		start := time.Now()
		err := strategy.Discover(ctx, req, sink)
		added := sink.Count() - before

		if err != nil {
			lastErr = err
			c.logger.Warn("discovery strategy failed",
				"strategy", strategy.Name(), "added", added, "err", err)
			continue
		}
		c.logger.Info("discovery strategy finished",
			"strategy", strategy.Name(), "added", added,
			"total", sink.Count(), "took", time.Since(start))
	}

	if sink.Count() == 0 && !sink.seedReached && lastErr != nil {
		return nil, errors.Join(ErrSeedUnreachable, lastErr)
	}
	return sink.Candidates(), nil
}
