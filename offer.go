package csp

import (
	"sync"
	"time"
)

// OfferState is the externally observable state of an Offer.
type OfferState int32

const (
	// OfferProbing is the initial state: no pairing has been finalized yet.
	OfferProbing OfferState = iota
	// OfferCommitted means exactly one pairing has been finalized; terminal.
	OfferCommitted
	// OfferWithdrawn means the offer was abandoned by timeout or cancellation
	// before any pairing finalized; terminal.
	OfferWithdrawn
)

// internal sub-states layered under OfferProbing: a channel may tentatively
// claim an offer while it negotiates the other side of a pairing, then either
// finalize the claim (commit) or release it (the other side declined).
type internalState int32

const (
	stateProbing internalState = iota
	stateClaimed
	stateCommitted
	stateWithdrawn
)

// Offer is the single-use arbiter shared by every request of one alt
// operation (or, for a plain single-channel Read/Write with a deadline, by
// the one trivial request that operation creates). It guarantees that of
// every channel racing to pair with it, at most one ever finalizes a commit.
//
// The public contract channels use is tryClaim/releaseClaim/finalize; Withdraw
// is the external timeout/cancellation path. No lock is ever held across user
// code: the commit callback runs after the internal mutex is released.
type Offer struct {
	mu       sync.Mutex
	state    internalState
	claimant uint64
	resolved chan struct{} // closed exactly once, when state leaves "probing family"

	guard deadlineGuard

	callback     func()
	callbackOnce sync.Once

	probeComplete bool
}

// NewOffer creates a new Offer with an optional absolute deadline (zero value
// means no deadline) and an optional external cancellation signal. callback,
// if non-nil, runs exactly once, before the winning completer resolves.
func NewOffer(deadline time.Time, cancel <-chan struct{}, callback func()) *Offer {
	o := &Offer{
		resolved: make(chan struct{}),
		guard:    deadlineGuard{deadline: deadline, cancel: cancel},
		callback: callback,
	}
	return o
}

// markProbeComplete records that the Alt Engine has finished posting this
// offer to every candidate channel, and arms the deadline/cancellation race.
// It is safe to call at most once; later calls are no-ops.
func (o *Offer) markProbeComplete() {
	o.mu.Lock()
	if o.probeComplete {
		o.mu.Unlock()
		return
	}
	o.probeComplete = true
	already := o.state == stateCommitted || o.state == stateWithdrawn
	o.mu.Unlock()

	if already {
		return
	}

	o.guard.arm(o.Withdraw, o.resolved)
}

// ProbeComplete reports whether markProbeComplete has run.
func (o *Offer) ProbeComplete() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.probeComplete
}

// State reports the externally visible state of the offer.
func (o *Offer) State() OfferState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.externalState()
}

func (o *Offer) externalState() OfferState {
	switch o.state {
	case stateCommitted:
		return OfferCommitted
	case stateWithdrawn:
		return OfferWithdrawn
	default:
		return OfferProbing
	}
}

// Winner returns the candidate id that finalized this offer's commit, if any.
func (o *Offer) Winner() (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == stateCommitted {
		return o.claimant, true
	}
	return 0, false
}

// tryClaim is the "offer()" operation: candidate asks whether it may
// tentatively hold this offer. Accept (true) means candidate is either the
// first to claim it, or is re-entering its own prior claim/commit (idempotent
// re-offer, which matchmake's step 2 relies on when a buffered channel offers
// the same side twice). Decline (false) means some other candidate already
// holds the offer, or it has been withdrawn.
func (o *Offer) tryClaim(candidate uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case stateProbing:
		o.state = stateClaimed
		o.claimant = candidate
		return true
	case stateClaimed, stateCommitted:
		return o.claimant == candidate
	default: // stateWithdrawn
		return false
	}
}

// releaseClaim reverts a tentative claim back to Probing so a different
// channel may win the offer later. It is a no-op unless candidate currently
// holds a non-finalized claim — once finalize has run for candidate, the
// commit is irrevocable and releaseClaim cannot undo it.
func (o *Offer) releaseClaim(candidate uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == stateClaimed && o.claimant == candidate {
		o.state = stateProbing
		o.claimant = 0
	}
}

// finalize is the "commit()" operation: candidate, having already secured a
// claim on every offer involved in a pairing, makes its win permanent. It is
// idempotent for repeated calls by the same candidate that already finalized.
// Returns false if some other candidate won, or the offer was withdrawn out
// from under the pairing attempt (a timeout/cancel race) — the caller must
// treat false as "this pairing does not happen" and unwind accordingly.
func (o *Offer) finalize(candidate uint64) bool {
	o.mu.Lock()
	switch o.state {
	case stateClaimed:
		if o.claimant != candidate {
			o.mu.Unlock()
			return false
		}
		o.state = stateCommitted
	case stateCommitted:
		if o.claimant != candidate {
			o.mu.Unlock()
			return false
		}
	default:
		o.mu.Unlock()
		return false
	}
	o.mu.Unlock()

	o.stopTimerAndSignal()
	o.runCallback()
	return true
}

// Withdraw flips Probing (including a tentatively Claimed-but-not-yet-
// finalized state) to Withdrawn. It is a no-op once the offer has committed —
// by the time finalize() has run, the pairing has already completed and
// cannot be retroactively undone by a racing timeout or cancellation.
func (o *Offer) Withdraw() {
	o.mu.Lock()
	switch o.state {
	case stateProbing, stateClaimed:
		o.state = stateWithdrawn
	default:
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	o.stopTimerAndSignal()
}

func (o *Offer) stopTimerAndSignal() {
	o.guard.stop()
	select {
	case <-o.resolved:
	default:
		close(o.resolved)
	}
}

func (o *Offer) runCallback() {
	if o.callback == nil {
		return
	}
	o.callbackOnce.Do(o.callback)
}
