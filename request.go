package csp

import (
	"sync"
	"time"
)

// RequestKind tags which side of a rendezvous a Request represents.
type RequestKind int

const (
	// ReadKind marks a Request that wants to receive a value.
	ReadKind RequestKind = iota
	// WriteKind marks a Request that wants to hand off a value.
	WriteKind
)

func (k RequestKind) String() string {
	if k == WriteKind {
		return "write"
	}
	return "read"
}

// AltRequest is the type-erased tagged union {Read(channel), Write(channel,
// value)}, carrying enough to post itself against a shared Offer without the
// Alt Engine ever needing to know its payload type T. Build one with Read[T]
// or Write[T]; ReadOrWriteAny accepts a slice of these directly, which is
// what lets one alt mix channels of different T.
type AltRequest interface {
	channelInfo() ChannelInfo
	requestKind() RequestKind
	channelID() uint64
	post(o *Offer, deadline time.Time) *altOutcome
	retract(o *Offer)
}

// Read builds an AltRequest that wants to receive a value from ch.
func Read[T any](ch *Channel[T]) AltRequest {
	return readRequest[T]{ch: ch}
}

// Write builds an AltRequest that wants to hand value off to ch.
func Write[T any](ch *Channel[T], value T) AltRequest {
	return writeRequest[T]{ch: ch, value: value}
}

type readRequest[T any] struct{ ch *Channel[T] }

func (r readRequest[T]) channelInfo() ChannelInfo { return r.ch.Info() }
func (r readRequest[T]) requestKind() RequestKind { return ReadKind }
func (r readRequest[T]) channelID() uint64        { return r.ch.id }

func (r readRequest[T]) post(o *Offer, deadline time.Time) *altOutcome {
	out := newAltOutcome()
	r.ch.readAsync(o, deadline, out)
	return out
}

func (r readRequest[T]) retract(o *Offer) { r.ch.retractReader(o) }

type writeRequest[T any] struct {
	ch    *Channel[T]
	value T
}

func (w writeRequest[T]) channelInfo() ChannelInfo { return w.ch.Info() }
func (w writeRequest[T]) requestKind() RequestKind { return WriteKind }
func (w writeRequest[T]) channelID() uint64        { return w.ch.id }

func (w writeRequest[T]) post(o *Offer, deadline time.Time) *altOutcome {
	out := newAltOutcome()
	w.ch.writeAsync(w.value, o, deadline, out)
	return out
}

func (w writeRequest[T]) retract(o *Offer) { w.ch.retractWriter(o) }

// altOutcome is the completer every AltRequest posts into: a single-slot,
// type-erased result cell the Alt Engine waits on without knowing T.
type altOutcome struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newAltOutcome() *altOutcome {
	return &altOutcome{done: make(chan struct{})}
}

func (a *altOutcome) setResult(v any) {
	a.once.Do(func() {
		a.value = v
		close(a.done)
	})
}

func (a *altOutcome) setError(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

func (a *altOutcome) setCancelled() { a.setError(ErrCancelled) }

// AltResult is the tagged result of a successful ReadOrWriteAny: the
// identity of the channel that won, whether it was a read or a write, and
// (for a read) the value received.
type AltResult struct {
	Channel ChannelInfo
	Kind    RequestKind
	Value   any
}

// ResultAs type-asserts an AltResult's Value to T. ok is false if the result
// carries no value (a write) or the value is not of type T.
func ResultAs[T any](r AltResult) (T, bool) {
	v, ok := r.Value.(T)
	return v, ok
}
