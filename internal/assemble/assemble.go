// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble accumulates ordered per-page results into the raw
// assembled document. Purely structural bookkeeping: no retries happen
// here, and an ordering violation is a caller bug, not a recoverable
// condition.
package assemble

import (
	"fmt"

	"github.com/pdiddy/pagescribe/pkg/types"
)

// Assembler collects PageResults in strictly ascending page order,
// starting at page 1 with no gaps. Every page index appears exactly once
// in the finalized document, failed pages included; failures are visible
// as placeholders, never silently dropped.
type Assembler struct {
	pages []types.PageResult
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{}
}

// Append records the result for the next page. The caller must append
// exactly once per page index, in ascending order; anything else is a
// contract violation (an ordering bug upstream) and returns an error the
// caller must treat as fatal.
func (a *Assembler) Append(r types.PageResult) error {
	want := len(a.pages) + 1
	if r.Index != want {
		return fmt.Errorf("out-of-order append: got page %d, want page %d", r.Index, want)
	}
	a.pages = append(a.pages, r)
	return nil
}

// Len returns the number of pages appended so far.
func (a *Assembler) Len() int {
	return len(a.pages)
}

// Finalize hands off the assembled document. The assembler must not be
// appended to afterward.
func (a *Assembler) Finalize() types.AssembledDocument {
	return types.AssembledDocument{Pages: a.pages}
}
