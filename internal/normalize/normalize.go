// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"io"

	"github.com/pdiddy/pagescribe/pkg/types"
)

// Summary holds counts from one normalization pass. Normalization never
// fails a run; what it could not confidently rewrite it passed through,
// and the counts are the only report of what happened.
type Summary struct {
	// Pages is the number of page boundaries rewritten into markers.
	Pages int `json:"pages" yaml:"pages"`

	// TablesMerged counts cross-page table merges.
	TablesMerged int `json:"tables_merged" yaml:"tables_merged"`

	// SplitHeadingsUnified counts two-line headings joined into one.
	SplitHeadingsUnified int `json:"split_headings_unified" yaml:"split_headings_unified"`

	// DuplicateHeadingsCollapsed counts repeated headings dropped.
	DuplicateHeadingsCollapsed int `json:"duplicate_headings_collapsed" yaml:"duplicate_headings_collapsed"`

	// FailedPagesPreserved counts failed-page placeholders carried
	// through untouched, still awaiting manual remediation.
	FailedPagesPreserved int `json:"failed_pages_preserved" yaml:"failed_pages_preserved"`
}

// Print writes a one-line-per-count summary to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "normalized %d pages: %d tables merged, %d split headings unified, %d duplicate headings collapsed\n",
		s.Pages, s.TablesMerged, s.SplitHeadingsUnified, s.DuplicateHeadingsCollapsed)
	if s.FailedPagesPreserved > 0 {
		fmt.Fprintf(w, "%d failed pages preserved (grep for %q)\n",
			s.FailedPagesPreserved, types.FailedPageSentinel)
	}
}

// Run rewrites the raw assembled document into the final unified form.
// It never returns an error: every step is fail-open, passing through
// what it cannot classify. Running the output through Run again produces
// no further changes.
func Run(raw string, cfg types.NormalizeConfig) (string, Summary) {
	var sum Summary

	blocks := parseBlocks(raw)

	blocks, sum.SplitHeadingsUnified = unifySplitHeadings(blocks)
	blocks, sum.TablesMerged = mergeAdjacentPageTables(blocks)
	blocks, sum.DuplicateHeadingsCollapsed = collapseDuplicateHeadings(blocks)
	blocks, sum.Pages = markPageBoundaries(blocks)
	sum.FailedPagesPreserved = countPlaceholders(blocks)

	md := reassemble(blocks)
	if cfg.RelevelHeadings {
		md = fixHeadingLevels(md)
	}
	md = foldBitfieldRows(md)
	md = repairMultilineCells(md)

	return md, sum
}

// markPageBoundaries rewrites every "# Page N" heading into its comment
// marker form, keeping the page index addressable in the final document.
func markPageBoundaries(blocks []block) ([]block, int) {
	marked := 0
	for i, b := range blocks {
		page, ok := pageHeading(b)
		if !ok {
			continue
		}
		blocks[i] = block{kind: blockText, lines: []string{PageBoundaryMarker(page)}}
		marked++
	}
	return blocks, marked
}

// countPlaceholders counts blocks carrying the failed-page sentinel.
func countPlaceholders(blocks []block) int {
	n := 0
	for _, b := range blocks {
		if placeholderBlock(b) {
			n++
		}
	}
	return n
}
