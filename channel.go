package csp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/csp/executor"
	"github.com/ygrebnov/csp/logging"
	"github.com/ygrebnov/csp/metrics"
)

// ChannelState is a Channel's position in its retirement state machine.
type ChannelState int32

const (
	// Open accepts new requests and runs matchmaking normally.
	Open ChannelState = iota
	// Retiring refuses new requests but still drains already-queued ones.
	Retiring
	// Retired is terminal: both pending queues and the buffer are empty.
	Retired
)

func (s ChannelState) String() string {
	switch s {
	case Retiring:
		return "retiring"
	case Retired:
		return "retired"
	default:
		return "open"
	}
}

// ChannelInfo is a channel's stable identity, reported back to alt callers so
// they know which candidate won.
type ChannelInfo struct {
	ID   uint64
	Name string
}

// Status is the non-mutating snapshot Probe returns.
type Status struct {
	State          ChannelState
	BufferLen      int
	BufferCap      int
	PendingReaders int
	PendingWriters int
	Attributes     ChannelAttributes
}

var nextChannelID atomic.Uint64

// pendingReader is one element of a Channel's PendingReaders queue.
type pendingReader struct {
	offer     *Offer
	deadline  time.Time
	completer completer
}

// pendingWriter is one element of a Channel's PendingWriters queue.
type pendingWriter struct {
	value     any
	offer     *Offer
	deadline  time.Time
	completer completer
}

// Channel is a typed rendezvous point: FIFO queues of pending readers,
// pending writers, and buffered values, mediating every pairing through the
// Offer Arbiter. All mutating operations run matchmake() under mu; no user
// code (a completer call or commit callback) ever executes while mu is held.
type Channel[T any] struct {
	id   uint64
	name string

	mu    sync.Mutex
	state ChannelState

	capacity int
	buffer   []T

	maxReaders     int
	maxWriters     int
	readerOverflow OverflowPolicy
	writerOverflow OverflowPolicy

	pendingReaders []*pendingReader
	pendingWriters []*pendingWriter

	attrs  ChannelAttributes
	exec   executor.Executor
	m      channelMetrics
	logger logging.Logger
}

type channelMetrics struct {
	committed metrics.Counter
	declined  metrics.Counter
	overflow  metrics.Counter
	retired   metrics.Counter
	queued    metrics.UpDownCounter
}

func newChannelMetrics(p metrics.Provider, name string) channelMetrics {
	attrs := map[string]string{"channel": name}
	return channelMetrics{
		committed: p.Counter("csp_channel_pairings_committed_total", metrics.WithAttributes(attrs)),
		declined:  p.Counter("csp_channel_offers_declined_total", metrics.WithAttributes(attrs)),
		overflow:  p.Counter("csp_channel_overflow_dropped_total", metrics.WithAttributes(attrs)),
		retired:   p.Counter("csp_channel_retirements_total", metrics.WithAttributes(attrs)),
		queued:    p.UpDownCounter("csp_channel_pending_total", metrics.WithAttributes(attrs)),
	}
}

// NewChannel constructs a Channel[T] from a *Config. A nil config applies
// defaults (unbuffered, unbounded pending queues, Reject overflow). A non-nil
// Config is used as given, with no merging against defaults, except that a nil
// Executor, Metrics or Logger is replaced by its default.
func NewChannel[T any](config *Config) (*Channel[T], error) {
	cfg := defaultConfig()
	if config != nil {
		cfg = *config
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return newChannelFromConfig[T](cfg), nil
}

// NewChannelWithOptions constructs a Channel[T] via functional options,
// building its Config from defaultConfig() plus whatever opts override.
func NewChannelWithOptions[T any](opts ...Option) (*Channel[T], error) {
	cfg, err := buildConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newChannelFromConfig[T](cfg), nil
}

func newChannelFromConfig[T any](cfg Config) *Channel[T] {
	c := &Channel[T]{
		id:             nextChannelID.Add(1),
		name:           cfg.Name,
		capacity:       cfg.Capacity,
		buffer:         make([]T, 0, cfg.Capacity),
		maxReaders:     cfg.MaxPendingReaders,
		maxWriters:     cfg.MaxPendingWriters,
		readerOverflow: cfg.ReaderOverflow,
		writerOverflow: cfg.WriterOverflow,
		attrs:          cfg.Attributes,
		exec:           cfg.Executor,
		m:              newChannelMetrics(cfg.Metrics, cfg.Name),
		logger:         cfg.Logger,
	}
	if cfg.Scope != nil && cfg.Name != "" {
		cfg.Scope.GetOrCreate(cfg.Name, func() any { return c })
	}
	return c
}

// Info returns the channel's stable identity.
func (c *Channel[T]) Info() ChannelInfo {
	return ChannelInfo{ID: c.id, Name: c.name}
}

// Probe returns a non-mutating snapshot of the channel's status.
func (c *Channel[T]) Probe() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:          c.state,
		BufferLen:      len(c.buffer),
		BufferCap:      c.capacity,
		PendingReaders: len(c.pendingReaders),
		PendingWriters: len(c.pendingWriters),
		Attributes:     c.attrs,
	}
}

// ReadAsync posts a read request against the channel and returns immediately
// with a future the caller awaits. offer may be nil, in which case a trivial
// single-slot Offer is created so the pairing algorithm has a uniform
// contract to work with.
func (c *Channel[T]) ReadAsync(offer *Offer, deadline time.Time) *future[T] {
	f := newFuture[T]()
	if offer == nil {
		offer = NewOffer(deadline, nil, nil)
		offer.markProbeComplete()
	}
	c.readAsync(offer, deadline, f)
	return f
}

// WriteAsync posts a write request against the channel and returns
// immediately with a future the caller awaits for confirmation.
func (c *Channel[T]) WriteAsync(value T, offer *Offer, deadline time.Time) *future[struct{}] {
	f := newFuture[struct{}]()
	if offer == nil {
		offer = NewOffer(deadline, nil, nil)
		offer.markProbeComplete()
	}
	c.writeAsync(value, offer, deadline, f)
	return f
}

// Read is the synchronous convenience wrapper: it wraps a single request in
// a trivial Offer whose cancellation signal is ctx.Done(), then awaits it.
func (c *Channel[T]) Read(ctx context.Context, deadline time.Time) (T, error) {
	offer := NewOffer(deadline, ctx.Done(), nil)
	f := newFuture[T]()
	c.readAsync(offer, deadline, f)
	offer.markProbeComplete()
	select {
	case <-f.done:
	case <-offer.resolved:
		// A withdrawn offer can no longer pair; with ctx still live that
		// means the deadline elapsed, so the request is retracted.
		if offer.State() == OfferWithdrawn && ctx.Err() == nil {
			c.retractReader(offer)
			var zero T
			return zero, ErrTimeout
		}
	}
	return f.wait(ctx)
}

// Write is the synchronous convenience wrapper around WriteAsync.
func (c *Channel[T]) Write(ctx context.Context, value T, deadline time.Time) error {
	offer := NewOffer(deadline, ctx.Done(), nil)
	f := newFuture[struct{}]()
	c.writeAsync(value, offer, deadline, f)
	offer.markProbeComplete()
	select {
	case <-f.done:
	case <-offer.resolved:
		if offer.State() == OfferWithdrawn && ctx.Err() == nil {
			c.retractWriter(offer)
			return ErrTimeout
		}
	}
	_, err := f.wait(ctx)
	return err
}

// readAsync is the low-level entry point request.go's AltRequest
// implementations call; comp is whatever type-erased completer the caller
// wants fulfilled (a *future[T] for the public API, a *altOutcome for alt.go).
func (c *Channel[T]) readAsync(offer *Offer, deadline time.Time, comp completer) {
	c.mu.Lock()

	if c.state != Open {
		c.mu.Unlock()
		comp.setError(ErrRetired)
		return
	}

	r := &pendingReader{offer: offer, deadline: deadline, completer: comp}

	// Enqueue, then let runMatchmaking immediately try to pair this request
	// before it ever sits idle in the queue.
	c.pendingReaders = append(c.pendingReaders, r)
	c.m.queued.Add(1)
	after := c.evictOverflowReaders()
	after = append(after, c.runMatchmaking()...)

	c.transitionIfDraining()

	c.mu.Unlock()
	c.runAfter(after)
}

func (c *Channel[T]) writeAsync(value T, offer *Offer, deadline time.Time, comp completer) {
	c.mu.Lock()

	if c.state != Open {
		c.mu.Unlock()
		comp.setError(ErrRetired)
		return
	}

	w := &pendingWriter{value: value, offer: offer, deadline: deadline, completer: comp}

	c.pendingWriters = append(c.pendingWriters, w)
	c.m.queued.Add(1)
	after := c.evictOverflowWriters()
	after = append(after, c.runMatchmaking()...)

	c.transitionIfDraining()

	c.mu.Unlock()
	c.runAfter(after)
}

// retractReader removes a still-queued pending reader tied to offer, if one
// exists. It is how the Alt Engine cleans up every non-winning candidate once
// an offer resolves, so no spurious reader is left queued on a losing
// channel. A reader already matched, evicted, or never posted here is simply
// not found; retract is then a no-op.
func (c *Channel[T]) retractReader(offer *Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.pendingReaders {
		if r.offer == offer {
			c.pendingReaders = append(c.pendingReaders[:i], c.pendingReaders[i+1:]...)
			c.m.queued.Add(-1)
			c.transitionIfDraining()
			return
		}
	}
}

// retractWriter is retractReader's counterpart for the write side.
func (c *Channel[T]) retractWriter(offer *Offer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.pendingWriters {
		if w.offer == offer {
			c.pendingWriters = append(c.pendingWriters[:i], c.pendingWriters[i+1:]...)
			c.m.queued.Add(-1)
			c.transitionIfDraining()
			return
		}
	}
}

// evictOverflowReaders applies c.readerOverflow if PendingReaders now exceeds
// maxReaders, returning completer actions to run after mu is released. The
// brand-new request (already appended) is the one rejected under Reject; a
// previously-queued one is evicted under LIFO/FIFO. Eviction only fails that
// one request's completer — its Offer, if any, is untouched and remains live
// for its other candidates (see DESIGN.md).
func (c *Channel[T]) evictOverflowReaders() []func() {
	if c.maxReaders < 0 || len(c.pendingReaders) <= c.maxReaders {
		return nil
	}
	var victim *pendingReader
	switch c.readerOverflow {
	case OverflowLIFO:
		// newest previously queued = second-to-last (last is the brand new one)
		n := len(c.pendingReaders)
		victim = c.pendingReaders[n-2]
		c.pendingReaders = append(c.pendingReaders[:n-2], c.pendingReaders[n-1])
	case OverflowFIFODropHead:
		victim = c.pendingReaders[0]
		c.pendingReaders = c.pendingReaders[1:]
	default: // OverflowReject: the new request (last) is rejected
		n := len(c.pendingReaders)
		victim = c.pendingReaders[n-1]
		c.pendingReaders = c.pendingReaders[:n-1]
	}
	c.m.queued.Add(-1)
	c.m.overflow.Add(1)
	comp := victim.completer
	return []func(){func() { comp.setError(ErrOverflow) }}
}

func (c *Channel[T]) evictOverflowWriters() []func() {
	if c.maxWriters < 0 || len(c.pendingWriters) <= c.maxWriters {
		return nil
	}
	var victim *pendingWriter
	switch c.writerOverflow {
	case OverflowLIFO:
		n := len(c.pendingWriters)
		victim = c.pendingWriters[n-2]
		c.pendingWriters = append(c.pendingWriters[:n-2], c.pendingWriters[n-1])
	case OverflowFIFODropHead:
		victim = c.pendingWriters[0]
		c.pendingWriters = c.pendingWriters[1:]
	default:
		n := len(c.pendingWriters)
		victim = c.pendingWriters[n-1]
		c.pendingWriters = c.pendingWriters[:n-1]
	}
	c.m.queued.Add(-1)
	c.m.overflow.Add(1)
	comp := victim.completer
	return []func(){func() { comp.setError(ErrOverflow) }}
}

// runMatchmaking is the core pairing loop: it assumes mu is held, repeatedly
// pairs the head reader against the head value source (a buffered value if
// present, else the head writer), and finally lets any remaining lone writers
// commit into free buffer slots. It returns the completer/callback actions to
// run once mu is released — never invoking user code while the lock is held.
func (c *Channel[T]) runMatchmaking() []func() {
	var after []func()

	for len(c.pendingReaders) > 0 {
		reader := c.pendingReaders[0]

		useBuffer := len(c.buffer) > 0
		if !useBuffer && len(c.pendingWriters) == 0 {
			break
		}

		var writer *pendingWriter
		if !useBuffer {
			writer = c.pendingWriters[0]
		}

		if reader.offer != nil {
			if !reader.offer.tryClaim(c.id) {
				// Reader was already taken by another channel in its alt.
				c.pendingReaders = c.pendingReaders[1:]
				c.m.queued.Add(-1)
				c.m.declined.Add(1)
				continue
			}
		}

		if writer != nil && writer.offer != nil {
			if !writer.offer.tryClaim(c.id) {
				if reader.offer != nil {
					reader.offer.releaseClaim(c.id)
				}
				c.pendingWriters = c.pendingWriters[1:]
				c.m.queued.Add(-1)
				c.m.declined.Add(1)
				continue
			}
		}

		// Both sides (that have offers) accepted; finalize and transfer.
		if reader.offer != nil {
			if !reader.offer.finalize(c.id) {
				// Raced with an external timeout/cancel between claim and
				// finalize; release the writer's claim (if any) and drop
				// the reader, retry from the top.
				if writer != nil && writer.offer != nil {
					writer.offer.releaseClaim(c.id)
				}
				c.pendingReaders = c.pendingReaders[1:]
				c.m.queued.Add(-1)
				continue
			}
		}
		if writer != nil && writer.offer != nil {
			if !writer.offer.finalize(c.id) {
				c.pendingWriters = c.pendingWriters[1:]
				c.m.queued.Add(-1)
				continue
			}
		}

		var value T
		if useBuffer {
			value = c.buffer[0]
			c.buffer = c.buffer[1:]
		} else {
			value = writer.value.(T)
			c.pendingWriters = c.pendingWriters[1:]
			c.m.queued.Add(-1)
		}
		c.pendingReaders = c.pendingReaders[1:]
		c.m.queued.Add(-1)
		c.m.committed.Add(1)

		readerComp := reader.completer
		after = append(after, func() { readerComp.setResult(value) })
		if writer != nil {
			writerComp := writer.completer
			after = append(after, func() { writerComp.setResult(struct{}{}) })
		}
	}

	// Lone writers committing into free buffer slots (no reader required).
	for len(c.pendingWriters) > 0 && len(c.buffer) < c.capacity {
		writer := c.pendingWriters[0]
		if writer.offer != nil {
			if !writer.offer.tryClaim(c.id) {
				c.pendingWriters = c.pendingWriters[1:]
				c.m.queued.Add(-1)
				c.m.declined.Add(1)
				continue
			}
			if !writer.offer.finalize(c.id) {
				c.pendingWriters = c.pendingWriters[1:]
				c.m.queued.Add(-1)
				continue
			}
		}
		c.buffer = append(c.buffer, writer.value.(T))
		c.pendingWriters = c.pendingWriters[1:]
		c.m.queued.Add(-1)
		c.m.committed.Add(1)

		writerComp := writer.completer
		after = append(after, func() { writerComp.setResult(struct{}{}) })
	}

	return after
}

// transitionIfDraining advances Retiring -> Retired once both pending queues
// and the buffer are empty. Assumes mu is held.
func (c *Channel[T]) transitionIfDraining() {
	if c.state == Retiring && len(c.pendingReaders) == 0 && len(c.pendingWriters) == 0 && len(c.buffer) == 0 {
		c.state = Retired
		c.m.retired.Add(1)
	}
}

// Retire begins (or forces) channel shutdown. With immediate=false,
// Open transitions to Retiring: new requests are refused, the buffer drains
// to already-queued readers, and already-queued writers may still fill a
// free buffer slot. With immediate=true, any Open or Retiring channel jumps
// straight to Retired: every still-queued request fails with ErrRetired and
// the buffer is discarded. Idempotent once Retired.
func (c *Channel[T]) Retire(immediate bool) {
	c.mu.Lock()

	if c.state == Retired {
		c.mu.Unlock()
		return
	}

	if !immediate {
		if c.state == Open {
			c.state = Retiring
		}
		after := c.runMatchmaking()
		c.transitionIfDraining()
		c.mu.Unlock()
		c.runAfter(after)
		return
	}

	var after []func()
	for _, r := range c.pendingReaders {
		comp := r.completer
		after = append(after, func() { comp.setError(ErrRetired) })
	}
	for _, w := range c.pendingWriters {
		comp := w.completer
		after = append(after, func() { comp.setError(ErrRetired) })
	}
	c.pendingReaders = nil
	c.pendingWriters = nil
	c.buffer = c.buffer[:0]
	c.state = Retired
	c.m.retired.Add(1)

	c.mu.Unlock()
	c.runAfter(after)
}

// runAfter dispatches completer/callback actions gathered while mu was held
// onto the channel's Executor. It is always called after mu has been
// released, so no user code ever runs while the channel lock is held;
// routing through Executor also means a slow or misbehaving callback can
// never block the goroutine that just finished matchmaking.
func (c *Channel[T]) runAfter(actions []func()) {
	for _, fn := range actions {
		c.exec.Go(fn)
	}
}
