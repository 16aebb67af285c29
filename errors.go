package csp

import "errors"

// Namespace prefixes every sentinel error this package defines, mirroring how
// downstream code correlates failures back to this module.
const Namespace = "csp"

var (
	// ErrTimeout is returned when a request's deadline elapses before it commits.
	ErrTimeout = errors.New(Namespace + ": deadline elapsed before commit")

	// ErrCancelled is returned when an external cancellation signal fires before commit.
	ErrCancelled = errors.New(Namespace + ": cancelled before commit")

	// ErrRetired is returned when a channel reached (or already was in) the Retired
	// state while a request targeting it was live.
	ErrRetired = errors.New(Namespace + ": channel retired")

	// ErrOverflow is returned to a request dropped by an overflow policy, whether
	// because it was rejected outright or evicted by LIFO/FIFO-drop-head.
	ErrOverflow = errors.New(Namespace + ": pending queue overflow")

	// ErrInvalidOperation marks a programmer error: an empty alt list, Fair priority
	// requested outside a ChannelSet, or a read and a write against the same channel
	// in one alt.
	ErrInvalidOperation = errors.New(Namespace + ": invalid operation")
)

// AltError wraps a failure from a multi-channel alt with the identity of the
// channel(s) involved, when that identity is known: the underlying sentinel
// remains matchable via errors.Is, while callers that want the channel
// name/id can extract it.
type AltError struct {
	err     error
	channel ChannelInfo
	hasInfo bool
}

func newAltError(err error) error {
	if err == nil {
		return nil
	}
	return &AltError{err: err}
}

func newAltErrorWithInfo(err error, info ChannelInfo) error {
	if err == nil {
		return nil
	}
	return &AltError{err: err, channel: info, hasInfo: true}
}

func (e *AltError) Error() string { return e.err.Error() }

func (e *AltError) Unwrap() error { return e.err }

// ChannelInfo returns the channel identity associated with this failure, if any.
func (e *AltError) ChannelInfo() (ChannelInfo, bool) { return e.channel, e.hasInfo }

// ExtractChannelInfo returns the channel identity carried by err, if err (or
// something it wraps) is an *AltError that recorded one.
func ExtractChannelInfo(err error) (ChannelInfo, bool) {
	var ae *AltError
	if errors.As(err, &ae) {
		return ae.ChannelInfo()
	}
	return ChannelInfo{}, false
}
