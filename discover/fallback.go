package discover

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
	"github.com/pevans/blogscout/extract"
)

// RawPageStrategy fetches the seed page with a plain GET and re-runs the
// candidate extractor against the raw HTML. It exists for sites where the
// rendering tier is unavailable or came back empty.
type RawPageStrategy struct {
	cfg    blogscout.Config
	logger *log.Logger
	client Fetcher
}

func (s *RawPageStrategy) Name() string { return "raw" }

// Applies: only when earlier tiers found fewer candidates than the raw
// fallback threshold.
func (s *RawPageStrategy) Applies(req Request, found int) bool {
	return found < s.cfg.RawFallbackThreshold
}

func (s *RawPageStrategy) Discover(ctx context.Context, req Request, sink *Sink) error {
	body, err := s.client.Get(ctx, req.SeedURL)
	if err != nil {
		return fmt.Errorf("raw fetch of seed failed: %w", err)
	}
	sink.MarkSeedReached()

	for _, candidate := range extract.Candidates(body, req.SeedURL, req.Context, s.cfg) {
		if !sink.Add(candidate) {
			break
		}
	}
	return nil
}

// ScrollStrategy drives the headless browser against JavaScript-driven
// infinite-scroll listings. It is the most expensive tier: it runs for
// library-context seeds, or as an absolute last resort when almost nothing
// was found.
type ScrollStrategy struct {
	cfg     blogscout.Config
	logger  *log.Logger
	browser Scroller
}

func (s *ScrollStrategy) Name() string { return "scroll" }

func (s *ScrollStrategy) Applies(req Request, found int) bool {
	if req.Context == blogscout.ContextLibrary {
		return found < req.target()
	}
	return found < s.cfg.ScrollFallbackThreshold
}

func (s *ScrollStrategy) Discover(ctx context.Context, req Request, sink *Sink) error {
	html, err := s.browser.FetchScrolled(ctx, req.SeedURL)
	if err != nil {
		return fmt.Errorf("headless scroll of seed failed: %w", err)
	}
	sink.MarkSeedReached()

	for _, candidate := range extract.Candidates(html, req.SeedURL, req.Context, s.cfg) {
		if !sink.Add(candidate) {
			break
		}
	}
	return nil
}
