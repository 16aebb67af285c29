package csp

import (
	"testing"
	"time"
)

func TestOffer_SingleClaimCommits(t *testing.T) {
	o := NewOffer(time.Time{}, nil, nil)
	o.markProbeComplete()

	if !o.tryClaim(1) {
		t.Fatalf("tryClaim(1) = false, want true")
	}
	if o.tryClaim(2) {
		t.Fatalf("tryClaim(2) = true, want false (already claimed by 1)")
	}
	if !o.finalize(1) {
		t.Fatalf("finalize(1) = false, want true")
	}
	if o.State() != OfferCommitted {
		t.Fatalf("State() = %v, want OfferCommitted", o.State())
	}
	winner, ok := o.Winner()
	if !ok || winner != 1 {
		t.Fatalf("Winner() = (%d, %v), want (1, true)", winner, ok)
	}
}

func TestOffer_ReleaseClaimAllowsOtherWinner(t *testing.T) {
	o := NewOffer(time.Time{}, nil, nil)
	o.markProbeComplete()

	if !o.tryClaim(1) {
		t.Fatalf("tryClaim(1) = false, want true")
	}
	o.releaseClaim(1)

	if !o.tryClaim(2) {
		t.Fatalf("tryClaim(2) = false after release, want true")
	}
	if !o.finalize(2) {
		t.Fatalf("finalize(2) = false, want true")
	}
	winner, _ := o.Winner()
	if winner != 2 {
		t.Fatalf("Winner() = %d, want 2", winner)
	}
}

func TestOffer_FinalizeAfterWithdrawFails(t *testing.T) {
	o := NewOffer(time.Time{}, nil, nil)
	o.markProbeComplete()

	o.tryClaim(1)
	o.Withdraw()

	if o.finalize(1) {
		t.Fatalf("finalize(1) = true after withdraw, want false")
	}
	if o.State() != OfferWithdrawn {
		t.Fatalf("State() = %v, want OfferWithdrawn", o.State())
	}
}

func TestOffer_WithdrawAfterCommitIsNoOp(t *testing.T) {
	o := NewOffer(time.Time{}, nil, nil)
	o.markProbeComplete()

	o.tryClaim(1)
	if !o.finalize(1) {
		t.Fatalf("finalize(1) = false, want true")
	}
	o.Withdraw()

	if o.State() != OfferCommitted {
		t.Fatalf("State() = %v after post-commit Withdraw, want OfferCommitted", o.State())
	}
}

func TestOffer_CallbackRunsExactlyOnce(t *testing.T) {
	calls := 0
	o := NewOffer(time.Time{}, nil, func() { calls++ })
	o.markProbeComplete()

	o.tryClaim(1)
	o.finalize(1)
	o.finalize(1)

	if calls != 1 {
		t.Fatalf("callback ran %d times, want 1", calls)
	}
}

func TestOffer_DeadlineWithdraws(t *testing.T) {
	o := NewOffer(time.Now().Add(20*time.Millisecond), nil, nil)
	o.markProbeComplete()

	select {
	case <-o.resolved:
	case <-time.After(time.Second):
		t.Fatal("offer did not resolve before timeout")
	}
	if o.State() != OfferWithdrawn {
		t.Fatalf("State() = %v, want OfferWithdrawn", o.State())
	}
}

func TestOffer_CancelWithdraws(t *testing.T) {
	cancel := make(chan struct{})
	o := NewOffer(time.Time{}, cancel, nil)
	o.markProbeComplete()

	close(cancel)

	select {
	case <-o.resolved:
	case <-time.After(time.Second):
		t.Fatal("offer did not resolve after cancel")
	}
	if o.State() != OfferWithdrawn {
		t.Fatalf("State() = %v, want OfferWithdrawn", o.State())
	}
}
