// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"testing"
	"time"

	"github.com/pdiddy/pagescribe/pkg/types"
)

func TestNextAction(t *testing.T) {
	twoTiers := []types.Tier{
		{Model: "primary", MaxAttempts: 3},
		{Model: "fallback", MaxAttempts: 2},
	}

	tests := []struct {
		name     string
		tiers    []types.Tier
		tierIdx  int
		attempts int
		want     Action
	}{
		{"budget remaining", twoTiers, 0, 1, RetrySameTier},
		{"last attempt in budget", twoTiers, 0, 2, RetrySameTier},
		{"first tier exhausted", twoTiers, 0, 3, EscalateTier},
		{"fallback budget remaining", twoTiers, 1, 1, RetrySameTier},
		{"last tier exhausted", twoTiers, 1, 2, GiveUp},
		{
			"single tier gives up when spent",
			[]types.Tier{{Model: "only", MaxAttempts: 1}},
			0, 1, GiveUp,
		},
		{
			"zero budget falls back to default",
			[]types.Tier{{Model: "only"}},
			0, types.DefaultMaxAttempts - 1, RetrySameTier,
		},
		{
			"zero budget default exhausted",
			[]types.Tier{{Model: "only"}},
			0, types.DefaultMaxAttempts, GiveUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextAction(tt.tiers, tt.tierIdx, tt.attempts, OutcomeMalformed)
			if got != tt.want {
				t.Errorf("nextAction(tierIdx=%d, attempts=%d) = %s, want %s",
					tt.tierIdx, tt.attempts, got, tt.want)
			}
		})
	}
}

func TestNextActionOutcomeIndependent(t *testing.T) {
	// The policy treats every retryable outcome identically; only the
	// caller's backoff wait distinguishes rate limiting.
	tiers := []types.Tier{{Model: "only", MaxAttempts: 2}}
	for _, outcome := range []AttemptOutcome{OutcomeMalformed, OutcomeTransportError, OutcomeRateLimited} {
		if got := nextAction(tiers, 0, 1, outcome); got != RetrySameTier {
			t.Errorf("nextAction(%s) = %s, want %s", outcome, got, RetrySameTier)
		}
	}
}

func TestBackoffFor(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	tests := []struct {
		consecutive int
		want        time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},  // capped
		{10, time.Second}, // stays capped
	}

	for _, tt := range tests {
		if got := backoffFor(tt.consecutive, base, max); got != tt.want {
			t.Errorf("backoffFor(%d) = %s, want %s", tt.consecutive, got, tt.want)
		}
	}
}

func TestBackoffForDefaults(t *testing.T) {
	if got := backoffFor(0, 0, 0); got != 2*time.Second {
		t.Errorf("backoffFor with zero base = %s, want 2s", got)
	}
	if got := backoffFor(20, time.Second, 0); got != 30*time.Second {
		t.Errorf("backoffFor overflow = %s, want the 30s cap", got)
	}
}
