package csp

import (
	"fmt"

	"github.com/ygrebnov/csp/executor"
	"github.com/ygrebnov/csp/logging"
	"github.com/ygrebnov/csp/metrics"
	"github.com/ygrebnov/csp/registry"
)

// Option configures a channel. Use NewChannelWithOptions[T](opts...) to build
// a Channel via options instead of a *Config.
type Option func(*Config)

// WithCapacity sets the buffer capacity b (must be >= 0).
func WithCapacity(n int) Option {
	return func(c *Config) {
		if n < 0 {
			panic("csp: WithCapacity requires n >= 0")
		}
		c.Capacity = n
	}
}

// WithMaxPendingReaders caps the pending-readers queue; negative means unbounded.
func WithMaxPendingReaders(n int, policy OverflowPolicy) Option {
	return func(c *Config) {
		c.MaxPendingReaders = n
		c.ReaderOverflow = policy
	}
}

// WithMaxPendingWriters caps the pending-writers queue; negative means unbounded.
func WithMaxPendingWriters(n int, policy OverflowPolicy) Option {
	return func(c *Config) {
		c.MaxPendingWriters = n
		c.WriterOverflow = policy
	}
}

// WithName sets the channel's stable name, used for registry lookup.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithScope registers the channel under Name in the given registry scope.
func WithScope(s *registry.Scope) Option {
	return func(c *Config) { c.Scope = s }
}

// WithAttributes attaches the full external wire-up attribute set.
func WithAttributes(attrs ChannelAttributes) Option {
	return func(c *Config) { c.Attributes = attrs }
}

// WithExecutor overrides the default dynamic executor.
func WithExecutor(e executor.Executor) Option {
	return func(c *Config) {
		if e == nil {
			panic("csp: WithExecutor requires a non-nil Executor")
		}
		c.Executor = e
	}
}

// WithMetrics overrides the default no-op metrics provider.
func WithMetrics(p metrics.Provider) Option {
	return func(c *Config) {
		if p == nil {
			panic("csp: WithMetrics requires a non-nil Provider")
		}
		c.Metrics = p
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Config) {
		if l == nil {
			panic("csp: WithLogger requires a non-nil Logger")
		}
		c.Logger = l
	}
}

// buildConfig assembles a Config from options over defaultConfig's base,
// mirroring NewOptions' configOptions builder.
func buildConfig(opts ...Option) (Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			panic("csp: nil channel option")
		}
		opt(&cfg)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid channel config: %w", err)
	}
	return cfg, nil
}
