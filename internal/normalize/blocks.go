// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize rewrites the raw per-page assembly into one
// structurally consistent Markdown document: page headings become
// boundary markers, tables split across page breaks are merged, repeated
// headings collapse, and heading levels are recomputed from their
// section numbers. The pass is fail-open: a block it cannot confidently
// classify is passed through unchanged, so an imperfect document is
// always preferred over a truncated one. Failed-page placeholders are
// never touched.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/pagescribe/pkg/types"
)

type blockKind int

const (
	blockText blockKind = iota
	blockHeading
	blockTable
)

// block is a run of lines classified as heading, table, or plain text.
type block struct {
	kind  blockKind
	lines []string
}

// looksLikeTableRow reports whether a line has two or more pipes,
// implying it is part of a table row or separator.
func looksLikeTableRow(line string) bool {
	return strings.Count(line, "|") >= 2
}

var leadingHashes = regexp.MustCompile(`^[#\s]+`)

// fixTableRow canonicalizes a table row: strips any leading hashes or
// spaces and guarantees the line starts and ends with a pipe.
func fixTableRow(line string) string {
	line = leadingHashes.ReplaceAllString(line, "")
	if !strings.HasPrefix(strings.TrimSpace(line), "|") {
		line = "| " + strings.TrimLeft(line, " \t")
	}
	if !strings.HasSuffix(strings.TrimRight(line, " \t"), "|") {
		line = strings.TrimRight(line, " \t") + " |"
	}
	return line
}

// parseBlocks splits Markdown into heading, table, and text blocks. A
// table block never breaks as long as lines keep carrying pipes; text
// blocks keep their blank lines so reassembly preserves spacing.
func parseBlocks(md string) []block {
	lines := strings.Split(md, "\n")
	var blocks []block
	var current []string
	kind := blockText

	add := func(k blockKind, ls []string) {
		if len(ls) > 0 {
			blocks = append(blocks, block{kind: k, lines: ls})
		}
	}

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		switch {
		case looksLikeTableRow(line):
			fixed := fixTableRow(line)
			if kind == blockTable {
				current = append(current, fixed)
			} else {
				add(kind, current)
				current = []string{fixed}
				kind = blockTable
			}

		case strings.HasPrefix(stripped, "#"):
			add(kind, current)
			current = []string{line}
			kind = blockHeading

		default:
			if kind == blockTable || kind == blockHeading {
				add(kind, current)
				current = []string{line}
				kind = blockText
			} else {
				current = append(current, line)
			}
		}
	}

	add(kind, current)
	return blocks
}

// reassemble joins blocks back into one Markdown string with a blank
// line between blocks. Runs of blank lines collapse to a single blank:
// spacing is reconstructed from block structure, not preserved, which
// keeps repeated normalization from drifting.
func reassemble(blocks []block) string {
	var raw []string
	for i, b := range blocks {
		if i > 0 {
			raw = append(raw, "")
		}
		raw = append(raw, b.lines...)
	}

	var out []string
	blank := false
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

var pageHeadingRe = regexp.MustCompile(`(?i)^#{1,6}\s+Page\s+(\d+)\b`)

// pageHeading reports whether b is a page-boundary heading written by the
// assembler (e.g. "# Page 12") and returns its page number.
func pageHeading(b block) (int, bool) {
	if b.kind != blockHeading {
		return 0, false
	}
	m := pageHeadingRe.FindStringSubmatch(strings.TrimSpace(strings.Join(b.lines, " ")))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

var pageMarkerRe = regexp.MustCompile(`^<!-- page (\d+) -->$`)

// PageBoundaryMarker returns the comment marker a page heading is
// rewritten into, preserving round-trip traceability from the final
// document back to the source page.
func PageBoundaryMarker(page int) string {
	return "<!-- page " + strconv.Itoa(page) + " -->"
}

// pageMarkerBlock reports whether b is a text block whose only non-blank
// content is page-boundary comment markers (the already-normalized form
// of a page heading).
func pageMarkerBlock(b block) bool {
	if b.kind != blockText {
		return false
	}
	seen := false
	for _, line := range b.lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if !pageMarkerRe.MatchString(t) {
			return false
		}
		seen = true
	}
	return seen
}

// emptyTextBlock reports whether b is a text block of only blank lines.
func emptyTextBlock(b block) bool {
	if b.kind != blockText {
		return false
	}
	for _, line := range b.lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}

// placeholderBlock reports whether b carries the failed-page sentinel.
// Placeholder blocks pass through every normalization step untouched and
// act as merge barriers.
func placeholderBlock(b block) bool {
	for _, line := range b.lines {
		if strings.Contains(line, types.FailedPageSentinel) {
			return true
		}
	}
	return false
}
