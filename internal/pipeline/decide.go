// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"math"
	"time"

	"github.com/pdiddy/pagescribe/pkg/types"
)

// Action is the escalation policy's verdict after a failed attempt.
type Action int

const (
	// RetrySameTier spends another attempt from the current tier's budget.
	RetrySameTier Action = iota

	// EscalateTier moves to the next tier and resets the attempt counter.
	EscalateTier

	// GiveUp ends the page: every tier's budget is spent.
	GiveUp
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case RetrySameTier:
		return "retry"
	case EscalateTier:
		return "escalate"
	case GiveUp:
		return "give-up"
	default:
		return "unknown"
	}
}

// nextAction is the pure escalation policy: given the tier list, the
// current tier index, the attempts already spent in that tier, and the
// outcome of the last attempt, it decides what the pipeline does next.
// No I/O, fully deterministic, so the policy is unit-testable on its own.
//
// All retryable outcomes (malformed, transport error, rate limited) share
// the same path: retry while the tier has budget, otherwise escalate,
// otherwise give up. Rate limiting differs only in the backoff wait the
// caller inserts before the retry; the retry still charges the budget.
func nextAction(tiers []types.Tier, tierIdx, attemptsUsed int, last AttemptOutcome) Action {
	budget := tiers[tierIdx].MaxAttempts
	if budget <= 0 {
		budget = types.DefaultMaxAttempts
	}
	if attemptsUsed < budget {
		return RetrySameTier
	}
	if tierIdx+1 < len(tiers) {
		return EscalateTier
	}
	return GiveUp
}

// backoffFor computes the bounded rate-limit wait: base doubling per
// consecutive rate-limited attempt (0-indexed), capped at max.
func backoffFor(consecutive int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = 2 * time.Second
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	d := time.Duration(math.Pow(2, float64(consecutive))) * base
	if d > max || d <= 0 {
		d = max
	}
	return d
}
