package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestDynamic_RunsAllSubmissions(t *testing.T) {
	d := NewDynamic()
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		d.Go(func() { n.Add(1) })
	}
	if err := d.EnsureFinished(context.Background()); err != nil {
		t.Fatalf("EnsureFinished error = %v", err)
	}
	if n.Load() != 50 {
		t.Fatalf("n = %d, want 50", n.Load())
	}
}

func TestFixed_CapsConcurrency(t *testing.T) {
	f := NewFixed(2)
	var inFlight, maxInFlight atomic.Int32

	for i := 0; i < 10; i++ {
		f.Go(func() {
			cur := inFlight.Add(1)
			for {
				prev := maxInFlight.Load()
				if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
		})
	}

	if err := f.EnsureFinished(context.Background()); err != nil {
		t.Fatalf("EnsureFinished error = %v", err)
	}
	if maxInFlight.Load() > 2 {
		t.Fatalf("max concurrent = %d, want <= 2", maxInFlight.Load())
	}
}

func TestFixed_PanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewFixed(0) did not panic")
		}
	}()
	NewFixed(0)
}

func TestDynamic_EnsureFinishedRespectsContext(t *testing.T) {
	d := NewDynamic()
	block := make(chan struct{})
	d.Go(func() { <-block })
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := d.EnsureFinished(ctx); err != context.DeadlineExceeded {
		t.Fatalf("EnsureFinished error = %v, want context.DeadlineExceeded", err)
	}
}
