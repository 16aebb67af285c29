package csp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestChannel_RendezvousReadWrite(t *testing.T) {
	ch, err := NewChannel[int](nil)
	if err != nil {
		t.Fatalf("NewChannel error = %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(1)

	var got int
	var readErr error
	go func() {
		defer wg.Done()
		got, readErr = ch.Read(ctx, time.Time{})
	}()

	time.Sleep(20 * time.Millisecond)
	if err := ch.Write(ctx, 7, time.Time{}); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	wg.Wait()

	if readErr != nil {
		t.Fatalf("Read error = %v", readErr)
	}
	if got != 7 {
		t.Fatalf("Read value = %d, want 7", got)
	}
}

// A single-channel read with no writer must fail with ErrTimeout no sooner
// than its deadline.
func TestChannel_ReadTimesOutWithNoWriter(t *testing.T) {
	ch, _ := NewChannel[int](nil)
	ctx := context.Background()

	start := time.Now()
	_, err := ch.Read(ctx, time.Now().Add(100*time.Millisecond))
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read error = %v, want ErrTimeout", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Fatalf("Read returned after %v, want >= 100ms", elapsed)
	}
}

// A write that fills a capacity-1 buffer succeeds immediately; a second and
// third writer, finding the buffer full and no reader, time out.
func TestChannel_BufferedWriteThenTimeout(t *testing.T) {
	ch, _ := NewChannelWithOptions[int](WithCapacity(1))
	ctx := context.Background()

	if err := ch.Write(ctx, 4, time.Time{}); err != nil {
		t.Fatalf("first Write error = %v, want nil (buffer accepts immediately)", err)
	}

	if err := ch.Write(ctx, 5, time.Now().Add(50*time.Millisecond)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("second Write error = %v, want ErrTimeout", err)
	}
	if err := ch.Write(ctx, 6, time.Now().Add(50*time.Millisecond)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("third Write error = %v, want ErrTimeout", err)
	}

	status := ch.Probe()
	if status.BufferLen != 1 {
		t.Fatalf("BufferLen = %d, want 1", status.BufferLen)
	}

	v, err := ch.Read(ctx, time.Time{})
	if err != nil || v != 4 {
		t.Fatalf("Read() = (%d, %v), want (4, nil)", v, err)
	}
}

// FIFO per channel invariant.
func TestChannel_FIFOReaders(t *testing.T) {
	ch, _ := NewChannel[int](nil)
	ctx := context.Background()

	n := 5
	order := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		idx := i
		go func() {
			defer wg.Done()
			// Stagger enqueue order deterministically.
			time.Sleep(time.Duration(idx) * 10 * time.Millisecond)
			v, err := ch.Read(ctx, time.Now().Add(5*time.Second))
			if err != nil {
				t.Errorf("reader %d error = %v", idx, err)
				return
			}
			order <- v
		}()
	}

	// Give readers time to enqueue in the staggered order above before any writes land.
	time.Sleep(time.Duration(n) * 10 * time.Millisecond)

	for i := 0; i < n; i++ {
		if err := ch.Write(ctx, i, time.Time{}); err != nil {
			t.Fatalf("Write(%d) error = %v", i, err)
		}
	}
	wg.Wait()
	close(order)

	i := 0
	for v := range order {
		if v != i {
			t.Fatalf("reader %d got value %d, want %d (FIFO violated)", i, v, i)
		}
		i++
	}
}

func TestChannel_RetireImmediateFailsInFlight(t *testing.T) {
	ch, _ := NewChannel[int](nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := ch.Read(ctx, time.Now().Add(5*time.Second))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Retire(true)

	select {
	case err := <-done:
		if !errors.Is(err, ErrRetired) {
			t.Fatalf("Read error = %v, want ErrRetired", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not resolve after immediate retire")
	}

	if _, err := ch.Read(ctx, time.Time{}); !errors.Is(err, ErrRetired) {
		t.Fatalf("post-retire Read error = %v, want ErrRetired", err)
	}
}

func TestChannel_RetireIdempotent(t *testing.T) {
	ch, _ := NewChannel[int](nil)
	ch.Retire(true)
	ch.Retire(true)
	ch.Retire(false)

	if ch.Probe().State != Retired {
		t.Fatalf("State = %v, want Retired", ch.Probe().State)
	}
}

// A graceful retire leaves a channel with a buffered value in Retiring, and a
// Retiring channel refuses new requests, so the buffered value stays put.
func TestChannel_RetireGracefulRefusesNewRequests(t *testing.T) {
	ch, _ := NewChannelWithOptions[int](WithCapacity(1))
	ctx := context.Background()

	if err := ch.Write(ctx, 1, time.Time{}); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	ch.Retire(false)

	if ch.Probe().State != Retiring {
		t.Fatalf("State = %v, want Retiring (buffer not yet drained)", ch.Probe().State)
	}

	if _, err := ch.Read(ctx, time.Time{}); !errors.Is(err, ErrRetired) {
		t.Fatalf("Read() error = %v, want ErrRetired (Retiring refuses new requests)", err)
	}
	if s := ch.Probe(); s.State != Retiring || s.BufferLen != 1 {
		t.Fatalf("State = %v, BufferLen = %d after refused Read, want Retiring, 1", s.State, s.BufferLen)
	}
}

func TestChannel_OverflowRejectsNewRequest(t *testing.T) {
	ch, _ := NewChannel[int](&Config{MaxPendingReaders: 1, ReaderOverflow: OverflowReject, MaxPendingWriters: -1})
	ctx := context.Background()

	go ch.Read(context.Background(), time.Now().Add(5*time.Second))
	time.Sleep(20 * time.Millisecond)

	_, err := ch.Read(ctx, time.Now().Add(5*time.Second))
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("second Read error = %v, want ErrOverflow", err)
	}
}
