// Package csp provides Communicating Sequential Processes style channels:
// typed rendezvous points with optional buffering, plus a multi-channel
// alternation ("alt") protocol for selecting among several candidate reads
// and writes at once.
//
// Constructors
//   - NewChannel[T](*Config): accepts a Config directly.
//   - NewChannelWithOptions[T](opts ...Option): builds a Config from
//     functional options.
//
// Defaults
// Unless overridden, the following defaults apply to a newly created channel:
//   - Capacity: 0 (unbuffered, rendezvous-only)
//   - MaxPendingReaders / MaxPendingWriters: -1 (unbounded)
//   - ReaderOverflow / WriterOverflow: OverflowReject
//   - Executor: a dynamic, unbounded executor
//   - Metrics: a no-op provider
//   - Logger: a no-op logger
//
// Single-channel operations
//   - Read / ReadAsync: receive a value, synchronously or via a future.
//   - Write / WriteAsync: hand a value off, synchronously or via a future.
//   - Retire: begin (or force) channel shutdown.
//   - Probe: a non-mutating snapshot of queue depths and state.
//
// Alternation
//   - ReadOrWriteAny: the general multi-channel operation, mixing reads and
//     writes against distinct channels under one priority and deadline.
//   - ReadFromAny / WriteToAny: typed convenience wrappers for homogeneous
//     read-only or write-only alts.
//   - ChannelSet + ReadOrWriteAnySet: the only way to run a Fair alt, since
//     Fair requires a persistent cursor across calls.
//
// Every pairing (single-channel or alt) is mediated by an Offer: at most one
// candidate ever commits, and a deadline or external cancellation race against
// that commit resolves atomically in the commit's favor if it already
// happened.
package csp
