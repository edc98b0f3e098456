// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"testing"

	"github.com/pdiddy/pagescribe/internal/oracle"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		outcome  AttemptOutcome
		markdown string
	}{
		{
			name:     "fenced markdown block",
			reply:    "Here is the page:\n```markdown\n# Title\n\nBody text.\n```\nDone.",
			outcome:  OutcomeSuccess,
			markdown: "# Title\n\nBody text.",
		},
		{
			name:     "bare fence without language tag",
			reply:    "```\n# Title\n```",
			outcome:  OutcomeSuccess,
			markdown: "# Title",
		},
		{
			name:    "no fenced block",
			reply:   "# Title\n\nBody text without a fence.",
			outcome: OutcomeMalformed,
		},
		{
			name:    "empty fenced block",
			reply:   "```markdown\n\n```",
			outcome: OutcomeMalformed,
		},
		{
			name:    "refusal outside block",
			reply:   "I'm sorry, but I can't help with that.\n```markdown\n# Title\n```",
			outcome: OutcomeMalformed,
		},
		{
			name:    "refusal inside block",
			reply:   "```markdown\nI am unable to access the image you provided.\n```",
			outcome: OutcomeMalformed,
		},
		{
			name:    "refusal with different casing",
			reply:   "I CANNOT VIEW the attached page.",
			outcome: OutcomeMalformed,
		},
		{
			name:    "rate limit error",
			err:     &oracle.RateLimitError{Message: "rate_limit_error"},
			outcome: OutcomeRateLimited,
		},
		{
			name:    "wrapped rate limit error",
			err:     errors.Join(errors.New("request failed"), &oracle.RateLimitError{}),
			outcome: OutcomeRateLimited,
		},
		{
			name:    "transport error",
			err:     &oracle.TransportError{StatusCode: 502, Message: "bad gateway"},
			outcome: OutcomeTransportError,
		},
		{
			name:    "generic error",
			err:     errors.New("connection reset"),
			outcome: OutcomeTransportError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, markdown := Classify(tt.reply, tt.err)
			if outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", outcome, tt.outcome)
			}
			if markdown != tt.markdown {
				t.Errorf("markdown = %q, want %q", markdown, tt.markdown)
			}
		})
	}
}

func TestClassifyErrorWinsOverReply(t *testing.T) {
	outcome, markdown := Classify("```markdown\n# Title\n```", errors.New("timeout"))
	if outcome != OutcomeTransportError {
		t.Errorf("outcome = %s, want %s", outcome, OutcomeTransportError)
	}
	if markdown != "" {
		t.Errorf("markdown = %q, want empty", markdown)
	}
}
