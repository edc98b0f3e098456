// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pdiddy/pagescribe/pkg/types"
)

func pageImages(n int) []types.PageImage {
	images := make([]types.PageImage, n)
	for i := range images {
		images[i] = types.PageImage{Index: i + 1}
	}
	return images
}

func TestConvertAllEmitsInPageOrder(t *testing.T) {
	images := pageImages(5)

	// Force completions in reverse page order: each page waits for its
	// successor to finish first. The emit order must still be 1..5.
	done := make([]chan struct{}, len(images)+2)
	for i := range done {
		done[i] = make(chan struct{})
	}
	close(done[len(images)+1])

	convert := func(ctx context.Context, img types.PageImage) (types.PageResult, error) {
		<-done[img.Index+1]
		defer close(done[img.Index])
		return types.PageResult{Index: img.Index, Status: types.PageConverted}, nil
	}

	var emitted []int
	err := ConvertAll(context.Background(), images, len(images), convert,
		func(r types.PageResult) error {
			emitted = append(emitted, r.Index)
			return nil
		})
	if err != nil {
		t.Fatalf("ConvertAll: %v", err)
	}
	if len(emitted) != len(images) {
		t.Fatalf("emitted %d results, want %d", len(emitted), len(images))
	}
	for i, idx := range emitted {
		if idx != i+1 {
			t.Errorf("emit position %d got page %d, want %d", i, idx, i+1)
		}
	}
}

func TestConvertAllBoundsConcurrency(t *testing.T) {
	images := pageImages(8)
	const limit = 2

	var mu sync.Mutex
	inFlight, peak := 0, 0
	convert := func(ctx context.Context, img types.PageImage) (types.PageResult, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
		return types.PageResult{Index: img.Index, Status: types.PageConverted}, nil
	}

	err := ConvertAll(context.Background(), images, limit, convert,
		func(types.PageResult) error { return nil })
	if err != nil {
		t.Fatalf("ConvertAll: %v", err)
	}
	if peak > limit {
		t.Errorf("peak concurrency %d exceeds limit %d", peak, limit)
	}
}

func TestConvertAllEmitErrorStops(t *testing.T) {
	images := pageImages(3)
	convert := func(ctx context.Context, img types.PageImage) (types.PageResult, error) {
		return types.PageResult{Index: img.Index, Status: types.PageConverted}, nil
	}

	boom := errors.New("ledger write failed")
	err := ConvertAll(context.Background(), images, 1, convert,
		func(types.PageResult) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("ConvertAll error = %v, want %v", err, boom)
	}
}

func TestConvertAllCancellation(t *testing.T) {
	images := pageImages(4)
	ctx, cancel := context.WithCancel(context.Background())

	convert := func(ctx context.Context, img types.PageImage) (types.PageResult, error) {
		if img.Index == 1 {
			cancel()
			return types.PageResult{}, ctx.Err()
		}
		return types.PageResult{Index: img.Index, Status: types.PageConverted}, nil
	}

	var emitted []int
	err := ConvertAll(ctx, images, 1, convert, func(r types.PageResult) error {
		emitted = append(emitted, r.Index)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ConvertAll error = %v, want context.Canceled", err)
	}
	// Page 1 was cancelled, so nothing after it may be emitted either.
	if len(emitted) != 0 {
		t.Errorf("emitted %v after cancellation, want none", emitted)
	}
}

func TestConvertAllEmptyInput(t *testing.T) {
	err := ConvertAll(context.Background(), nil, 4,
		func(ctx context.Context, img types.PageImage) (types.PageResult, error) {
			t.Fatal("convert called for empty input")
			return types.PageResult{}, nil
		},
		func(types.PageResult) error { return nil })
	if err != nil {
		t.Fatalf("ConvertAll: %v", err)
	}
}
