// Package metrics is the channel core's observability seam. The core never
// logs or swallows a failure — these instruments exist purely so an
// integrator can watch pairing throughput, offer contention, and retirement
// without the core taking a logging dependency on its hot path.
package metrics

// Provider constructs instruments used to record metrics. Implementations
// must be safe for concurrent use — channels sharing a name share their
// named instruments, and their matchmake loops run on different goroutines.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts (e.g. pairings committed, offers declined).
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that can move up or down (e.g. current queue depth).
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements (e.g. time spent
// queued before a pairing, in seconds).
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata. It's advisory only;
// implementations may ignore it entirely.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes are static key-value pairs associated with the instrument
	// itself. Keep cardinality bounded.
	Attributes map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g. "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes attaches static attributes to the instrument (bounded cardinality only).
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}

// ApplyOptions builds an InstrumentConfig from opts; exported so Provider
// implementations outside this package (e.g. the prometheus adapter) can
// reuse the same option-folding logic.
func ApplyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
