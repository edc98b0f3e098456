// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"regexp"
	"strings"
)

// sameTableStructure reports whether two tables appear to share a column
// layout, judged by the pipe count of their first rows. A textual
// header-similarity check would be stricter, but transcriptions vary cell
// padding and alignment colons too much for byte comparison; column count
// is the signal that survives.
func sameTableStructure(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return strings.Count(a[0], "|") == strings.Count(b[0], "|")
}

// isDashSeparator reports whether line is a Markdown table separator row
// like "|---|:---:|---|".
func isDashSeparator(line string) bool {
	stripped := strings.ReplaceAll(line, " ", "")
	if !strings.HasPrefix(stripped, "|") || !strings.HasSuffix(stripped, "|") {
		return false
	}
	inner := stripped[1 : len(stripped)-1]
	if inner == "" {
		return false
	}
	for _, ch := range inner {
		if ch != '-' && ch != ':' && ch != '|' {
			return false
		}
	}
	return true
}

// skipHeaderAndSeparator drops a table's header row and, when present,
// the dash separator beneath it. Used on the continuation fragment of a
// merged table, whose header repeats the first fragment's.
func skipHeaderAndSeparator(tableLines []string) []string {
	rest := tableLines[1:]
	if len(rest) > 0 && isDashSeparator(rest[0]) {
		rest = rest[1:]
	}
	return rest
}

// isPageBoundary reports whether b marks a page boundary: either the
// assembler's "# Page N" heading or its normalized comment-marker form.
func isPageBoundary(b block) bool {
	if _, ok := pageHeading(b); ok {
		return true
	}
	return pageMarkerBlock(b)
}

// mergeAdjacentPageTables merges a table that ends page N with a
// same-structure table that starts page N+1, dropping the continuation's
// repeated header row. Only blank text and exactly one page boundary may
// sit between the fragments. A failed-page placeholder is a hard barrier:
// content on the far side of a missing page cannot be assumed continuous.
// Each crossed boundary is re-emitted after the merged table so the page
// stays traceable. Returns the rewritten blocks and the merge count.
func mergeAdjacentPageTables(blocks []block) ([]block, int) {
	mergeCount := 0
	var out []block
	i := 0

	for i < len(blocks) {
		if blocks[i].kind != blockTable {
			out = append(out, blocks[i])
			i++
			continue
		}

		table := blocks[i]
		var crossed []block // boundaries absorbed by successful merges
		j := i + 1

		for {
			// Look ahead for a continuation fragment: blank blocks are
			// skippable, exactly one page boundary must be crossed, and
			// the next real block must be a same-structure table.
			k := j
			var boundary *block
			found := -1
			for k < len(blocks) {
				c := blocks[k]
				if emptyTextBlock(c) {
					k++
					continue
				}
				if placeholderBlock(c) {
					break
				}
				if isPageBoundary(c) {
					if boundary != nil {
						break
					}
					boundary = &blocks[k]
					k++
					continue
				}
				if c.kind == blockTable && boundary != nil && sameTableStructure(table.lines, c.lines) {
					found = k
				}
				break
			}
			if found < 0 {
				break
			}

			table = block{
				kind:  blockTable,
				lines: append(append([]string{}, table.lines...), skipHeaderAndSeparator(blocks[found].lines)...),
			}
			mergeCount++
			crossed = append(crossed, *boundary)
			j = found + 1
		}

		out = append(out, table)
		out = append(out, crossed...)
		i = j
	}
	return out, mergeCount
}

// bitfieldRangeRe matches lines holding only a bit range like "10:9".
var bitfieldRangeRe = regexp.MustCompile(`^\s*\d+:\d+\s*$`)

func isTableLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// foldBitfieldRows repairs a transcription pattern seen in register
// tables: a bit range line and a following "Reserved" line stranded just
// below the table they belong to. Each such pair becomes a new row
// appended to the preceding table:
//
//	| 10:9 | Reserved |  |  |
//
// A blank line is kept after the table only when the next non-blank line
// is not another table row.
func foldBitfieldRows(md string) string {
	lines := strings.Split(md, "\n")
	var output []string
	var table []string
	inTable := false

	i := 0
	for i < len(lines) {
		line := lines[i]

		if isTableLine(line) {
			inTable = true
			table = append(table, line)
			i++
			continue
		}

		if !inTable {
			output = append(output, line)
			i++
			continue
		}

		// The table just ended: fold any stranded bit-range/Reserved
		// pairs into it before flushing.
		inTable = false
		for {
			for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
				i++
			}
			if i+1 >= len(lines) || !bitfieldRangeRe.MatchString(lines[i]) {
				break
			}
			start := i
			bitRange := strings.TrimSpace(lines[i])
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
				i++
			}
			if i >= len(lines) || !strings.EqualFold(strings.TrimSpace(lines[i]), "reserved") {
				// Not the pattern: put the range line back untouched.
				i = start
				break
			}
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
				i++
			}
			table = append(table, "| "+bitRange+" | Reserved |  |  |")
		}

		output = append(output, table...)
		table = nil

		// Peek: keep one blank line unless the next non-blank line is
		// another table row.
		peek := i
		for peek < len(lines) && strings.TrimSpace(lines[peek]) == "" {
			peek++
		}
		if peek >= len(lines) || !isTableLine(lines[peek]) {
			if len(output) > 0 && strings.TrimSpace(output[len(output)-1]) != "" {
				output = append(output, "")
			}
		}
	}

	if inTable && len(table) > 0 {
		output = append(output, table...)
	}

	return strings.Join(output, "\n")
}

// repairMultilineCells fixes table rows the transcription split across
// multiple physical lines. The first row is the header and sets the
// column count; the second row may be the dash separator. From the third
// row on, a line whose columns are all empty except the last continues
// the previous row's final cell (joined with <br>); short rows are
// padded; long rows fold their surplus cells into the final column.
func repairMultilineCells(md string) string {
	lines := strings.Split(md, "\n")
	var output []string

	var table [][]string
	cols := 0
	rowIdx := 0
	inTable := false

	flush := func() {
		for _, row := range table {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = strings.TrimSpace(c)
			}
			output = append(output, "| "+strings.Join(cells, " | ")+" |")
		}
		table = nil
	}

	isRow := func(line string) bool {
		t := strings.TrimSpace(line)
		return strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|")
	}

	splitRow := func(line string) []string {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) <= 2 {
			return nil
		}
		return parts[1 : len(parts)-1]
	}

	startTable := func(columns []string) {
		table = append(table, columns)
		cols = len(columns)
		rowIdx = 0
	}

	for _, line := range lines {
		if !isRow(line) {
			if inTable {
				flush()
				inTable = false
				// Separate the table from following content, unless the
				// source already has a blank line here.
				if strings.TrimSpace(line) != "" &&
					len(output) > 0 && strings.TrimSpace(output[len(output)-1]) != "" {
					output = append(output, "")
				}
			}
			output = append(output, line)
			continue
		}

		columns := splitRow(line)
		if columns == nil {
			output = append(output, line)
			continue
		}

		if !inTable {
			inTable = true
			startTable(columns)
			continue
		}

		if rowIdx < 2 {
			// Header and separator rows are strict: a column-count
			// mismatch starts a fresh table.
			if len(columns) == cols {
				table = append(table, columns)
				rowIdx++
			} else {
				flush()
				output = append(output, "")
				startTable(columns)
			}
			continue
		}

		// Data rows are lenient.
		switch {
		case len(columns) == cols:
			if allButLastEmpty(columns) {
				last := len(table) - 1
				table[last][len(table[last])-1] += "<br>" + strings.TrimSpace(columns[len(columns)-1])
			} else {
				table = append(table, columns)
			}

		case len(columns) < cols:
			if allButLastEmpty(columns) {
				if len(columns) > 0 {
					last := len(table) - 1
					table[last][len(table[last])-1] += "<br>" + strings.TrimSpace(columns[len(columns)-1])
				}
			} else {
				for len(columns) < cols {
					columns = append(columns, "")
				}
				table = append(table, columns)
			}

		default: // len(columns) > cols
			mergedRow := append([]string{}, columns[:cols-1]...)
			var surplus []string
			for _, c := range columns[cols-1:] {
				surplus = append(surplus, strings.TrimSpace(c))
			}
			mergedRow = append(mergedRow, strings.Join(surplus, " / "))
			if allButLastEmpty(mergedRow) {
				last := len(table) - 1
				table[last][len(table[last])-1] += "<br>" + mergedRow[len(mergedRow)-1]
			} else {
				table = append(table, mergedRow)
			}
		}
		rowIdx++
	}

	if inTable {
		flush()
		if len(output) > 0 && strings.TrimSpace(output[len(output)-1]) != "" {
			output = append(output, "")
		}
	}

	return strings.Join(output, "\n")
}

// allButLastEmpty reports whether every column except the final one is
// blank, the signature of a continuation line.
func allButLastEmpty(columns []string) bool {
	for _, c := range columns[:len(columns)-1] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
