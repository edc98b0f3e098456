// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/pagescribe/internal/oracle"
	"github.com/pdiddy/pagescribe/pkg/types"
)

// Observer receives progress notifications from the pipeline. Injected so
// the conversion core stays free of global printing state.
type Observer interface {
	// PageStarted fires when a page's conversion begins.
	PageStarted(page int)

	// Attempt fires after each oracle call with the tier model, the
	// 1-based attempt number within that tier, and the classified outcome.
	Attempt(page int, model string, attempt int, outcome AttemptOutcome)

	// PageFinished fires with the final result for a page.
	PageFinished(result types.PageResult)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) PageStarted(int) {}

func (NopObserver) Attempt(int, string, int, AttemptOutcome) {}

func (NopObserver) PageFinished(types.PageResult) {}

// WriterObserver writes one-line progress records to w.
type WriterObserver struct {
	W io.Writer
}

func (o WriterObserver) PageStarted(page int) {
	fmt.Fprintf(o.W, "page %d: converting\n", page)
}

func (o WriterObserver) Attempt(page int, model string, attempt int, outcome AttemptOutcome) {
	if outcome == OutcomeSuccess && attempt == 1 {
		return // the PageFinished line covers the quiet path
	}
	fmt.Fprintf(o.W, "page %d: attempt %d with %s: %s\n", page, attempt, model, outcome)
}

func (o WriterObserver) PageFinished(r types.PageResult) {
	if r.Status == types.PageConverted {
		fmt.Fprintf(o.W, "page %d: converted (%s, %d attempts)\n", r.Index, r.Tier, r.Attempts)
		return
	}
	fmt.Fprintf(o.W, "page %d: FAILED after %d attempts\n", r.Index, r.Attempts)
}

// Converter converts single pages through the oracle under the tiered
// retry policy.
type Converter struct {
	oracle   oracle.Oracle
	tiers    []types.Tier
	backoff  time.Duration
	cap      time.Duration
	observer Observer
}

// NewConverter builds a Converter from cfg. Zero-value tiers, backoff,
// and concurrency fields fall back to the package defaults.
func NewConverter(o oracle.Oracle, cfg types.ConvertConfig, obs Observer) *Converter {
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = types.DefaultTiers()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Converter{
		oracle:   o,
		tiers:    tiers,
		backoff:  cfg.BackoffBase,
		cap:      cfg.BackoffCap,
		observer: obs,
	}
}

// Convert drives one page image through the tiers in declared order. The
// escalation policy is deterministic given a fixed sequence of attempt
// outcomes; only the oracle is nondeterministic. A page that exhausts
// every tier comes back as a failed PageResult, not an error. The only
// error Convert returns is context cancellation.
func (c *Converter) Convert(ctx context.Context, img types.PageImage) (types.PageResult, error) {
	c.observer.PageStarted(img.Index)

	tierIdx := 0
	attemptsInTier := 0
	totalAttempts := 0
	consecutiveRateLimits := 0

	for {
		model := c.tiers[tierIdx].Model

		reply, err := c.oracle.Transcribe(ctx, img, model)
		if ctx.Err() != nil {
			return types.PageResult{}, ctx.Err()
		}

		outcome, markdown := Classify(reply, err)
		attemptsInTier++
		totalAttempts++
		c.observer.Attempt(img.Index, model, attemptsInTier, outcome)

		if outcome == OutcomeSuccess {
			result := types.PageResult{
				Index:    img.Index,
				Status:   types.PageConverted,
				Markdown: markdown,
				Tier:     model,
				Attempts: totalAttempts,
			}
			c.observer.PageFinished(result)
			return result, nil
		}

		if outcome == OutcomeRateLimited {
			consecutiveRateLimits++
		} else {
			consecutiveRateLimits = 0
		}

		switch nextAction(c.tiers, tierIdx, attemptsInTier, outcome) {
		case RetrySameTier:
			if outcome == OutcomeRateLimited {
				wait := backoffFor(consecutiveRateLimits-1, c.backoff, c.cap)
				// A server-requested wait overrides a shorter computed
				// one, still subject to the configured cap.
				var rle *oracle.RateLimitError
				if errors.As(err, &rle) && rle.RetryAfter > wait {
					maxWait := c.cap
					if maxWait <= 0 {
						maxWait = 30 * time.Second
					}
					wait = rle.RetryAfter
					if wait > maxWait {
						wait = maxWait
					}
				}
				select {
				case <-ctx.Done():
					return types.PageResult{}, ctx.Err()
				case <-time.After(wait):
				}
			}
		case EscalateTier:
			tierIdx++
			attemptsInTier = 0
		case GiveUp:
			result := types.PageResult{
				Index:    img.Index,
				Status:   types.PageFailed,
				Tier:     model,
				Attempts: totalAttempts,
			}
			c.observer.PageFinished(result)
			return result, nil
		}
	}
}
