// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// PageImage is one rendered page of the source document: an opaque PNG
// bitmap plus its 1-based page index. Immutable; the conversion pipeline
// owns it for the duration of one page's conversion.
type PageImage struct {
	// Index is the 1-based page number within the source document.
	Index int

	// PNG is the encoded page bitmap.
	PNG []byte
}

// PageStatus indicates whether a page was converted or exhausted every tier.
type PageStatus string

const (
	PageConverted PageStatus = "converted"
	PageFailed    PageStatus = "failed"
)

// PageResult is the outcome of converting one page. Created exactly once
// per page by the conversion pipeline, consumed once by the assembler,
// never mutated afterward.
type PageResult struct {
	// Index is the 1-based page number this result belongs to.
	Index int `json:"index" yaml:"index"`

	// Status records whether the page converted.
	Status PageStatus `json:"status" yaml:"status"`

	// Markdown is the transcribed page content. Present only when
	// Status is PageConverted.
	Markdown string `json:"markdown,omitempty" yaml:"markdown,omitempty"`

	// Tier is the model identifier that produced the accepted reply,
	// or the last tier tried when the page failed.
	Tier string `json:"tier" yaml:"tier"`

	// Attempts is the total number of oracle calls made for this page
	// across all tiers.
	Attempts int `json:"attempts" yaml:"attempts"`
}

// PageMarker returns the literal page-boundary heading written before each
// page's content in the raw assembled document. The exact form is part of
// the external contract: downstream tooling locates pages by grepping it.
func PageMarker(index int) string {
	return fmt.Sprintf("# Page %d", index)
}

// FailedPageSentinel is the literal phrase written in place of a page the
// pipeline could not convert. Remediation tooling finds unresolved pages
// by substring-searching for it, so it must never change.
const FailedPageSentinel = "No valid Markdown block found."

// FailedPagePlaceholder returns the full placeholder body written for a
// failed page: a blockquoted failure note naming the page, then the
// sentinel phrase on its own line.
func FailedPagePlaceholder(index int) string {
	return fmt.Sprintf("> (page %d FAILED after all attempts, including fallback tiers)\n\n%s",
		index, FailedPageSentinel)
}

// AssembledDocument is the ordered sequence of per-page results for one
// source document: exactly one entry per page index in [1, N], failures
// included.
type AssembledDocument struct {
	// Pages holds one result per source page, in page order.
	Pages []PageResult
}

// Failed returns the indices of pages that did not convert, in page order.
func (d *AssembledDocument) Failed() []int {
	var failed []int
	for _, p := range d.Pages {
		if p.Status == PageFailed {
			failed = append(failed, p.Index)
		}
	}
	return failed
}

// HasFailures reports whether any page failed conversion.
func (d *AssembledDocument) HasFailures() bool {
	return len(d.Failed()) > 0
}

// Render writes the document in the persisted intermediate format: each
// page's content preceded by its PageMarker heading, failed pages carrying
// the FailedPagePlaceholder body.
func (d *AssembledDocument) Render() string {
	var sb strings.Builder
	for _, p := range d.Pages {
		sb.WriteString(PageMarker(p.Index))
		sb.WriteString("\n\n")
		if p.Status == PageConverted {
			sb.WriteString(strings.TrimRight(p.Markdown, "\n"))
		} else {
			sb.WriteString(FailedPagePlaceholder(p.Index))
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}
