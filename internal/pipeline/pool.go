// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"

	"github.com/pdiddy/pagescribe/pkg/types"
)

// ConvertFunc converts one page image. Satisfied by (*Converter).Convert;
// tests substitute scripted functions.
type ConvertFunc func(ctx context.Context, img types.PageImage) (types.PageResult, error)

// ConvertAll converts the given pages with bounded concurrency and emits
// results strictly in page order, whatever order conversions complete in.
// Pages are independent, so the only ordering point is the emit callback:
// an ordering gate buffers out-of-order completions until their
// predecessors have been emitted.
//
// Cancellation stops issuing new conversions promptly. In-flight pages may
// still complete; a completed result whose predecessors were cancelled is
// discarded rather than emitted out of order. Emitted results are never
// retracted.
func ConvertAll(ctx context.Context, images []types.PageImage, concurrency int, convert ConvertFunc, emit func(types.PageResult) error) error {
	if len(images) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = types.DefaultConcurrency
	}

	type completion struct {
		result types.PageResult
		err    error
	}

	results := make(chan completion, len(images))
	sem := make(chan struct{}, concurrency)

	launched := 0
launch:
	for _, img := range images {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break launch
		}
		launched++
		go func(img types.PageImage) {
			defer func() { <-sem }()
			r, err := convert(ctx, img)
			results <- completion{result: r, err: err}
		}(img)
	}

	// Ordering gate: hold completions until their predecessor is emitted.
	pending := make(map[int]types.PageResult, launched)
	next := images[0].Index

	for i := 0; i < launched; i++ {
		c := <-results
		if c.err != nil {
			// Cancelled page; the gate simply never releases past it.
			continue
		}
		pending[c.result.Index] = c.result
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			if err := emit(r); err != nil {
				return err
			}
			delete(pending, next)
			next++
		}
	}

	return ctx.Err()
}
