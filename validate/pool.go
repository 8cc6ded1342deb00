package validate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pevans/blogscout"
)

// ValidateAll runs validation fetches through a fixed-size worker pool.
// Workers claim candidates via an atomic cursor and write each result into
// the slot matching the candidate's position, so the output order matches
// discovery order no matter which worker finishes first. No two workers
// ever touch the same candidate or slot, and no locking is needed.
func (v *Validator) ValidateAll(ctx context.Context, candidates []blogscout.Candidate) []blogscout.ValidationResult {
	results := make([]blogscout.ValidationResult, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	width := v.cfg.FetchConcurrency
	if width < 1 {
		width = 1
	}
	if width > len(candidates) {
		width = len(candidates)
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup

	for worker := 0; worker < width; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(candidates) {
					return
				}
				if ctx.Err() != nil {
					// Cancelled mid-run: leave remaining slots
					// inconclusive so nothing gets dropped.
					results[idx] = blogscout.ValidationResult{Inconclusive: true}
					continue
				}
				results[idx] = v.Validate(ctx, candidates[idx])
			}
		}()
	}

	wg.Wait()
	return results
}

// DatesAll resolves publish dates for a candidate list through the same
// fixed-size pool, fetching only the candidates that lack a date. The
// returned slice is position-aligned with the input.
func (v *Validator) DatesAll(ctx context.Context, candidates []blogscout.Candidate) []*time.Time {
	dates := make([]*time.Time, len(candidates))
	if len(candidates) == 0 {
		return dates
	}

	width := v.cfg.FetchConcurrency
	if width < 1 {
		width = 1
	}
	if width > len(candidates) {
		width = len(candidates)
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup

	for worker := 0; worker < width; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(candidates) {
					return
				}
				if ctx.Err() != nil {
					dates[idx] = candidates[idx].PublishedDate
					continue
				}
				dates[idx] = v.PublishedDate(ctx, candidates[idx])
			}
		}()
	}

	wg.Wait()
	return dates
}
