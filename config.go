package csp

import (
	"github.com/ygrebnov/csp/executor"
	"github.com/ygrebnov/csp/logging"
	"github.com/ygrebnov/csp/metrics"
	"github.com/ygrebnov/csp/registry"
)

// OverflowPolicy selects what happens when a pending queue would exceed its cap.
type OverflowPolicy int

const (
	// OverflowReject fails the new request with ErrOverflow; the queue is unchanged.
	OverflowReject OverflowPolicy = iota
	// OverflowLIFO admits the new request and evicts the most recently queued
	// previously-pending request, failing it with ErrOverflow.
	OverflowLIFO
	// OverflowFIFODropHead admits the new request and evicts the oldest
	// pending request, failing it with ErrOverflow.
	OverflowFIFODropHead
)

// Config holds a channel's construction parameters. NewChannel accepts a
// *Config directly; NewChannelWithOptions builds one from Option values.
type Config struct {
	// Capacity is the buffer size b >= 0. Default: 0 (unbuffered/rendezvous).
	Capacity int

	// MaxPendingReaders caps the PendingReaders queue. Negative means unbounded.
	// Default: -1.
	MaxPendingReaders int

	// MaxPendingWriters caps the PendingWriters queue. Negative means unbounded.
	// Default: -1.
	MaxPendingWriters int

	// ReaderOverflow selects the policy applied when MaxPendingReaders would be
	// exceeded. Default: OverflowReject.
	ReaderOverflow OverflowPolicy

	// WriterOverflow selects the policy applied when MaxPendingWriters would be
	// exceeded. Default: OverflowReject.
	WriterOverflow OverflowPolicy

	// Name is an optional stable identity for the channel, used for registry
	// lookup and diagnostics. Default: "".
	Name string

	// Scope, if non-nil, is the registry scope this channel is registered
	// into under Name (a no-op if Name is empty).
	Scope *registry.Scope

	// Attributes carries the full external-wire-up property set, stored
	// verbatim and echoed back from Probe; the core does not act on
	// InitialBarrier/MinReaders beyond storing them (see DESIGN.md).
	Attributes ChannelAttributes

	// Executor runs commit callbacks and completer fulfillment outside the
	// channel's critical section. Default: executor.NewDynamic().
	Executor executor.Executor

	// Metrics is the instrumentation Provider. Default: metrics.NewNoopProvider().
	Metrics metrics.Provider

	// Logger is the optional tracing seam. Default: logging.Noop{}. The
	// channel stores it but emits no log events itself, and never uses it
	// to suppress or replace a failure delivered through a completer.
	Logger logging.Logger
}

// defaultConfig centralizes every default value in one place, used by both
// NewChannel (nil Config) and the options builder's base state.
func defaultConfig() Config {
	return Config{
		Capacity:          0,
		MaxPendingReaders: -1,
		MaxPendingWriters: -1,
		ReaderOverflow:    OverflowReject,
		WriterOverflow:    OverflowReject,
		Executor:          executor.NewDynamic(),
		Metrics:           metrics.NewNoopProvider(),
		Logger:            logging.Noop{},
	}
}

// validateConfig performs lightweight invariant checks, mirroring the
// teacher's validateConfig reserved-for-expansion shape.
func validateConfig(cfg *Config) error {
	if cfg.Capacity < 0 {
		return ErrInvalidOperation
	}
	if cfg.Executor == nil {
		cfg.Executor = executor.NewDynamic()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopProvider()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Noop{}
	}
	return nil
}
