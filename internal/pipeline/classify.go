// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one rendered page through the transcription
// oracle under a multi-tier retry policy and fans pages out across a
// bounded worker pool. Oracle misbehavior never escapes this package:
// the worst visible outcome for a page is a PageResult with failed
// status, not an error.
package pipeline

import (
	"errors"
	"regexp"
	"strings"

	"github.com/pdiddy/pagescribe/internal/oracle"
)

// AttemptOutcome classifies a single oracle call. Pipeline-internal; it
// drives the retry decision and is never persisted.
type AttemptOutcome int

const (
	// OutcomeSuccess means the reply contained a usable fenced block.
	OutcomeSuccess AttemptOutcome = iota

	// OutcomeMalformed means the reply had no recognizable fenced block
	// or was a refusal dressed up as an answer.
	OutcomeMalformed

	// OutcomeTransportError means the call itself failed: network error,
	// server failure, or a non-rate-limit API error.
	OutcomeTransportError

	// OutcomeRateLimited means the API rejected the call with HTTP 429.
	OutcomeRateLimited
)

// String returns the outcome name used in progress lines.
func (o AttemptOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeTransportError:
		return "transport-error"
	case OutcomeRateLimited:
		return "rate-limited"
	default:
		return "unknown"
	}
}

// fencedBlockRe matches the first triple-backtick block in a reply, with
// or without a "markdown" language tag.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:markdown)?\\s*(.*?)\\s*```")

// refusalPhrases are substrings (lowercased) that mark a reply as a
// polite failure: the model claiming it cannot see or access the page.
// Such replies can pass a naive length check while carrying no
// transcription at all.
var refusalPhrases = []string{
	"unable to access",
	"cannot access",
	"can't access",
	"unable to view",
	"cannot view",
	"unable to process the image",
	"i'm sorry, but i can",
	"i am sorry, but i can",
}

// Classify turns one oracle call's (reply, error) pair into an
// AttemptOutcome, plus the extracted page Markdown when the outcome is
// OutcomeSuccess. Classification inspects the reply content rather than
// trusting the oracle's notion of success.
func Classify(reply string, err error) (AttemptOutcome, string) {
	if err != nil {
		var rle *oracle.RateLimitError
		if errors.As(err, &rle) {
			return OutcomeRateLimited, ""
		}
		return OutcomeTransportError, ""
	}

	if isRefusal(reply) {
		return OutcomeMalformed, ""
	}

	m := fencedBlockRe.FindStringSubmatch(reply)
	if m == nil {
		return OutcomeMalformed, ""
	}
	block := strings.TrimSpace(m[1])
	if block == "" || isRefusal(block) {
		return OutcomeMalformed, ""
	}

	return OutcomeSuccess, block
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
