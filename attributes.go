package csp

// ChannelAttributes is the full external-wire-up property set a declarative
// attribute scanner would feed to a channel factory. It is a contract-only
// data carrier: the scanner itself is an out-of-scope external collaborator.
// The core stores and echoes these fields back via Probe, but
// InitialBarrier/MinReaders go unused by the pairing algorithm itself — see
// DESIGN.md's Open Question decision on why gating pairing on them is out of
// this module's scope.
type ChannelAttributes struct {
	// Name is the channel's declared name (mirrors Config.Name).
	Name string

	// BufferSize is the declared buffer capacity (mirrors Config.Capacity).
	BufferSize int

	// Scope is the declared registry scope name to register under (resolved
	// externally; the core itself only consumes a *registry.Scope value via
	// Config.Scope, not this string).
	Scope string

	// MaxPendingReaders/MaxPendingWriters and their overflow strategies mirror
	// Config's caps, kept here too so a declarative attribute carries the
	// whole picture without reaching into Config.
	MaxPendingReaders int
	MaxPendingWriters int
	ReaderOverflow    OverflowPolicy
	WriterOverflow    OverflowPolicy

	// InitialBarrier is the number of writer-ends a broadcast-variant channel
	// should wait to register before accepting its first pairing. Stored
	// only; the core does not gate pairing on it (see DESIGN.md).
	InitialBarrier int

	// MinReaders is the minimum number of reader-ends a broadcast-variant
	// channel requires before a write may proceed. Stored only, same caveat.
	MinReaders int
}
