package csp

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// errConstructChannelSet is returned when Fair priority is requested via the
// ad-hoc overload instead of an explicit ChannelSet.
var errConstructChannelSet = newAltError(ErrInvalidOperation)

// ReadOrWriteAny is the Alt Engine's core multi-channel operation: it posts
// requests (mixed reads and writes against distinct channels) to every
// candidate per priority, awaits the first commit through the shared Offer
// Arbiter, and returns a tagged result identifying the winner. A read and a
// write against the same channel in one call is rejected synchronously with
// ErrInvalidOperation, as is an empty request list or Fair priority (Fair
// requires an explicit ChannelSet via ReadOrWriteAnySet).
func ReadOrWriteAny(ctx context.Context, requests []AltRequest, deadline time.Time, priority Priority) (AltResult, error) {
	if priority == Fair {
		return AltResult{}, errConstructChannelSet
	}
	ordered, err := orderRequests(requests, priority)
	if err != nil {
		return AltResult{}, err
	}
	result, _, err := runAltIndexed(ctx, ordered, deadline)
	return result, err
}

// ReadOrWriteAnySet runs the Alt Engine over a ChannelSet, using the set's own
// priority (including Fair) and advancing its fair cursor on a win.
func ReadOrWriteAnySet(ctx context.Context, set *ChannelSet, deadline time.Time) (AltResult, error) {
	requests := set.requestsSnapshot()
	priority := set.Priority()

	var order []int
	if priority == Fair {
		if err := validateRequests(requests); err != nil {
			return AltResult{}, err
		}
		order = set.postingOrder()
	} else {
		ordered, err := orderRequests(requests, priority)
		if err != nil {
			return AltResult{}, err
		}
		requests = ordered
		order = identityOrder(len(requests))
	}

	posted := make([]AltRequest, len(order))
	for i, idx := range order {
		posted[i] = requests[idx]
	}

	result, winnerInPosted, err := runAltIndexed(ctx, posted, deadline)
	if err != nil {
		return AltResult{}, err
	}
	if priority == Fair {
		set.advanceCursor(order[winnerInPosted])
	}
	return result, nil
}

// ReadFromAny is the typed convenience wrapper over ReadOrWriteAny for a
// homogeneous read-only alt.
func ReadFromAny[T any](ctx context.Context, channels []*Channel[T], deadline time.Time, priority Priority) (T, ChannelInfo, error) {
	reqs := make([]AltRequest, len(channels))
	for i, ch := range channels {
		reqs[i] = Read(ch)
	}
	res, err := ReadOrWriteAny(ctx, reqs, deadline, priority)
	if err != nil {
		var zero T
		return zero, ChannelInfo{}, err
	}
	v, _ := ResultAs[T](res)
	return v, res.Channel, nil
}

// WriteToAny is the typed convenience wrapper over ReadOrWriteAny for a
// homogeneous write-only alt: value is offered to every channel, and the
// first to accept it wins.
func WriteToAny[T any](ctx context.Context, value T, channels []*Channel[T], deadline time.Time, priority Priority) (ChannelInfo, error) {
	reqs := make([]AltRequest, len(channels))
	for i, ch := range channels {
		reqs[i] = Write(ch, value)
	}
	res, err := ReadOrWriteAny(ctx, reqs, deadline, priority)
	if err != nil {
		return ChannelInfo{}, err
	}
	return res.Channel, nil
}

// orderRequests validates requests and returns them in the order the chosen
// priority should post them in. First and Any are treated as synonyms: both
// post in caller-supplied order, since guessing at a future rebalancing
// scheme for Any would be pure speculation (see DESIGN.md). Random permutes
// with a uniform Fisher-Yates shuffle.
func orderRequests(requests []AltRequest, priority Priority) ([]AltRequest, error) {
	if err := validateRequests(requests); err != nil {
		return nil, err
	}

	ordered := make([]AltRequest, len(requests))
	copy(ordered, requests)

	if priority == Random {
		rand.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}

	return ordered, nil
}

// validateRequests rejects an empty alt list and a read paired with a write
// against the same channel in one alt.
func validateRequests(requests []AltRequest) error {
	if len(requests) == 0 {
		return newAltError(ErrInvalidOperation)
	}
	seen := make(map[uint64]RequestKind, len(requests))
	for _, r := range requests {
		id := r.channelID()
		if prevKind, ok := seen[id]; ok && prevKind != r.requestKind() {
			return newAltErrorWithInfo(ErrInvalidOperation, r.channelInfo())
		}
		seen[id] = r.requestKind()
	}
	return nil
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// runAltIndexed is the engine proper: it shares one Offer across every
// request, posts them in the order given, and waits for the first to commit.
// A completer firing before the offer is actually committed to its candidate
// (ErrRetired from a channel already retired at post time, ErrOverflow from
// an eviction) is not a win — matchmake only ever calls setResult after
// finalize() succeeds, so any outcome resolving with a non-nil error is
// ignored and the engine keeps waiting for the real winner, or for every
// candidate to exhaust, or for the offer itself to resolve by deadline or
// cancellation. Win or lose, every non-winning request is retracted from its
// channel's pending queue before returning, so a timed-out or lost alt
// leaves no spurious entry behind.
func runAltIndexed(ctx context.Context, requests []AltRequest, deadline time.Time) (AltResult, int, error) {
	offer := NewOffer(deadline, ctx.Done(), nil)

	outcomes := make([]*altOutcome, len(requests))
	resultCh := make(chan int, len(requests))
	for i, r := range requests {
		out := r.post(offer, deadline)
		outcomes[i] = out
		idx := i
		go func() {
			<-out.done
			resultCh <- idx
		}()
	}
	offer.markProbeComplete()

	winner := -1
	exhausted := false
	reported := 0
	var firstNonRetired error
	var firstNonRetiredInfo ChannelInfo

waitLoop:
	for {
		select {
		case i := <-resultCh:
			reported++
			if outcomes[i].err == nil {
				winner = i
				break waitLoop
			}
			if firstNonRetired == nil && !errors.Is(outcomes[i].err, ErrRetired) {
				firstNonRetired = outcomes[i].err
				firstNonRetiredInfo = requests[i].channelInfo()
			}
			if reported == len(requests) {
				exhausted = true
				break waitLoop
			}
		case <-offer.resolved:
			if cid, ok := offer.Winner(); ok {
				for i, r := range requests {
					if r.channelID() == cid {
						<-outcomes[i].done
						winner = i
						break
					}
				}
			}
			break waitLoop
		}
	}

	// Every candidate is done one way or another; make sure the offer itself
	// is no longer live (stops its deadline timer and any cancel watcher)
	// even when no commit and no external timeout/cancel ever resolved it.
	offer.Withdraw()

	for i, r := range requests {
		if i == winner {
			continue
		}
		r.retract(offer)
		outcomes[i].setCancelled()
	}

	if winner == -1 {
		if exhausted {
			if firstNonRetired != nil {
				return AltResult{}, -1, newAltErrorWithInfo(firstNonRetired, firstNonRetiredInfo)
			}
			return AltResult{}, -1, newAltError(ErrRetired)
		}
		if ctx.Err() == context.Canceled {
			return AltResult{}, -1, newAltError(ErrCancelled)
		}
		return AltResult{}, -1, newAltError(ErrTimeout)
	}

	out := outcomes[winner]
	if out.err != nil {
		return AltResult{}, -1, newAltErrorWithInfo(out.err, requests[winner].channelInfo())
	}

	return AltResult{
		Channel: requests[winner].channelInfo(),
		Kind:    requests[winner].requestKind(),
		Value:   out.value,
	}, winner, nil
}
