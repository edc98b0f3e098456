// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import "testing"

func TestFixHeadingLevels(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "level from dot count",
			in:   "# 8.1.2 Priority Registers",
			want: "### 8.1.2 Priority Registers",
		},
		{
			name: "top level section",
			in:   "#### 8 Interrupt Controller",
			want: "# 8 Interrupt Controller",
		},
		{
			name: "bare section number",
			in:   "## 8.1",
			want: "## 8.1",
		},
		{
			name: "bitfield range is not a heading",
			in:   "## 31:22",
			want: "31:22",
		},
		{
			name: "hex value is not a heading",
			in:   "# 0xFFAB",
			want: "0xFFAB",
		},
		{
			name: "number then number is tabular data",
			in:   "## 8 42",
			want: "8 42",
		},
		{
			name: "sentence is body text",
			in:   "## This line ends with a period.",
			want: "This line ends with a period.",
		},
		{
			name: "numbered list item keeps its number",
			in:   "## 1. First item",
			want: "1. First item",
		},
		{
			name: "prose heading demoted",
			in:   "# Overview",
			want: "Overview",
		},
		{
			name: "plain text untouched",
			in:   "Just a line of text",
			want: "Just a line of text",
		},
		{
			name: "blank line untouched",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fixHeadingLevels(tt.in); got != tt.want {
				t.Errorf("fixHeadingLevels(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFixHeadingLevelsStable(t *testing.T) {
	in := "### 8.1.2 Priority Registers\n\nBody text here\n\n# 5 Overview Section"
	once := fixHeadingLevels(in)
	if twice := fixHeadingLevels(once); twice != once {
		t.Errorf("not stable:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestUnifySplitHeadingsSkipsSentences(t *testing.T) {
	blocks := parseBlocks(joinLines(
		"## 8.1",
		"This continuation ends with a period.",
	))
	out, n := unifySplitHeadings(blocks)
	if n != 0 {
		t.Errorf("unified %d headings, want 0", n)
	}
	if out[0].lines[0] != "## 8.1" {
		t.Errorf("heading rewritten to %q", out[0].lines[0])
	}
}

func TestUnifySplitHeadingsSkipsListItems(t *testing.T) {
	blocks := parseBlocks(joinLines(
		"## 8.1",
		"1. A list item",
	))
	_, n := unifySplitHeadings(blocks)
	if n != 0 {
		t.Errorf("unified %d headings, want 0", n)
	}
}
