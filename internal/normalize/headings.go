// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"regexp"
	"strings"
)

var (
	// numericHeadingNoText matches a heading line that is only a section
	// number, e.g. "## 8.1", the first half of a heading the model split
	// across two lines.
	numericHeadingNoText = regexp.MustCompile(`^#{1,6}\s+\d+(?:\.\d+)*$`)

	// bulletRe matches numbered list items like "1. Text" or "2) Text",
	// with or without stray leading hashes.
	bulletRe = regexp.MustCompile(`^#{0,6}\s*\d+(?:[.)])\s`)

	// numericHeadingRe captures hashes, the dotted section number, and
	// the rest of a numeric heading line.
	numericHeadingRe = regexp.MustCompile(`^(#{0,6})\s*(\d+(?:\.\d+)*)(.*)$`)
)

// unifySplitHeadings joins headings the per-page transcription split over
// two lines, e.g.
//
//	# 8
//	Nested Vector Interrupt Controller (NVIC)
//
// becomes "# 8 Nested Vector Interrupt Controller (NVIC)". Only a heading
// that is a bare section number is joined, and only with a follow-up line
// that is neither sentence-final text, a list item, nor another numeric
// heading. Returns the rewritten blocks and the number of joins.
func unifySplitHeadings(blocks []block) ([]block, int) {
	unified := 0
	i := 0
	for i < len(blocks)-1 {
		cur := blocks[i]
		next := blocks[i+1]

		if cur.kind != blockHeading || len(cur.lines) != 1 {
			i++
			continue
		}
		headingLine := strings.TrimSpace(cur.lines[0])
		if !numericHeadingNoText.MatchString(headingLine) || len(next.lines) == 0 {
			i++
			continue
		}

		nextLine := strings.TrimRight(next.lines[0], " \t")
		trimmed := strings.TrimSpace(nextLine)
		if trimmed == "" || strings.ContainsAny(trimmed[len(trimmed)-1:], ".!?") {
			i++
			continue
		}
		if bulletRe.MatchString(trimmed) || numericHeadingRe.MatchString(trimmed) {
			i++
			continue
		}

		// Join: strip any stray hashes off the continuation line.
		joined := headingLine + " " + strings.TrimSpace(leadingHashes.ReplaceAllString(nextLine, ""))
		blocks[i].lines = []string{joined}
		blocks[i+1].lines = next.lines[1:]
		unified++

		if emptyTextBlock(blocks[i+1]) || len(blocks[i+1].lines) == 0 {
			blocks = append(blocks[:i+1], blocks[i+2:]...)
		} else {
			i++
		}
	}
	return blocks, unified
}

// collapseDuplicateHeadings drops a heading that repeats the previous
// heading verbatim with only page boundaries or blank text between, the
// signature of a section title re-transcribed on every page it spans.
// A failed-page placeholder between two headings blocks the collapse.
func collapseDuplicateHeadings(blocks []block) ([]block, int) {
	collapsed := 0
	var out []block
	lastHeading := ""
	barrier := true // no heading seen yet

	for _, b := range blocks {
		switch {
		case b.kind == blockHeading:
			text := strings.TrimSpace(strings.Join(b.lines, " "))
			if _, isPage := pageHeading(b); isPage {
				out = append(out, b)
				continue
			}
			if !barrier && text == lastHeading {
				collapsed++
				continue
			}
			lastHeading = text
			barrier = false
			out = append(out, b)

		case emptyTextBlock(b) || pageMarkerBlock(b):
			out = append(out, b)

		default:
			// Real content (or a placeholder) between headings: a later
			// identical heading is a genuine new occurrence.
			barrier = true
			out = append(out, b)
		}
	}
	return out, collapsed
}

// fixHeadingLevels rewrites heading markers line by line:
//
//  1. a line ending in sentence punctuation is body text, never a heading;
//  2. a numbered list item keeps its number but loses any stray hashes;
//  3. a numeric section heading gets its hash count recomputed from the
//     dot count ("8.1.2" is level 3), unless the "number" is really a
//     bitfield range, value, or similar false positive;
//  4. any other hash-prefixed line is demoted to plain text.
func fixHeadingLevels(md string) string {
	lines := strings.Split(md, "\n")
	fixed := make([]string, 0, len(lines))

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if stripped != "" && strings.ContainsAny(stripped[len(stripped)-1:], ".!?,") {
			fixed = append(fixed, leadingHashes.ReplaceAllString(line, ""))
			continue
		}

		if bulletRe.MatchString(stripped) {
			fixed = append(fixed, leadingHashes.ReplaceAllString(line, ""))
			continue
		}

		if m := numericHeadingRe.FindStringSubmatch(stripped); m != nil {
			numericPart, rest := m[2], strings.TrimRight(m[3], " \t")

			// Colons mark bitfield ranges like "31:22", not headings.
			if strings.Contains(stripped, ":") {
				fixed = append(fixed, leadingHashes.ReplaceAllString(line, ""))
				continue
			}
			// No space after the number (e.g. "0xFFAB") is not a heading.
			if rest != "" && !strings.HasPrefix(rest, " ") {
				fixed = append(fixed, leadingHashes.ReplaceAllString(line, ""))
				continue
			}
			restTrimmed := strings.TrimSpace(rest)
			if strings.HasPrefix(restTrimmed, ":") || strings.HasPrefix(restTrimmed, "-") ||
				strings.HasPrefix(restTrimmed, "<") || strings.HasPrefix(restTrimmed, ">") ||
				strings.HasPrefix(restTrimmed, "&") {
				fixed = append(fixed, leadingHashes.ReplaceAllString(line, ""))
				continue
			}
			// A number followed by another number is tabular data.
			if restTrimmed != "" && restTrimmed[0] >= '0' && restTrimmed[0] <= '9' {
				fixed = append(fixed, leadingHashes.ReplaceAllString(line, ""))
				continue
			}

			level := strings.Count(numericPart, ".") + 1
			hashes := strings.Repeat("#", level)
			if rest != "" {
				fixed = append(fixed, hashes+" "+numericPart+rest)
			} else {
				fixed = append(fixed, hashes+" "+numericPart)
			}
			continue
		}

		if strings.HasPrefix(stripped, "#") {
			fixed = append(fixed, leadingHashes.ReplaceAllString(line, ""))
			continue
		}

		fixed = append(fixed, line)
	}
	return strings.Join(fixed, "\n")
}
