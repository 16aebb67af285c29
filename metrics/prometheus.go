package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider backs Provider with real prometheus.Collector instruments,
// registered against a caller-supplied prometheus.Registerer. It's the
// production counterpart to BasicProvider — wire it in via
// csp.WithMetrics(metrics.NewPrometheusProvider(reg)) to get pairing/offer/
// retirement counters scraped the same way estuary-flow exposes its own
// prometheus.CounterVec instruments.
type PrometheusProvider struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	updowns    map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusProvider constructs a Provider whose instruments are
// registered against reg as they're first created.
func NewPrometheusProvider(reg prometheus.Registerer) *PrometheusProvider {
	return &PrometheusProvider{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		updowns:    make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelNames(attrs map[string]string) ([]string, prometheus.Labels) {
	if len(attrs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(attrs))
	labels := make(prometheus.Labels, len(attrs))
	for k, v := range attrs {
		names = append(names, k)
		labels[k] = v
	}
	return names, labels
}

func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := ApplyOptions(opts)
	names, labels := labelNames(cfg.Attributes)

	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: cfg.Description,
		}, names)
		p.reg.MustRegister(vec)
		p.counters[name] = vec
	}
	p.mu.Unlock()

	return promCounter{vec.With(labels)}
}

func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := ApplyOptions(opts)
	names, labels := labelNames(cfg.Attributes)

	p.mu.Lock()
	vec, ok := p.updowns[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: cfg.Description,
		}, names)
		p.reg.MustRegister(vec)
		p.updowns[name] = vec
	}
	p.mu.Unlock()

	return promUpDownCounter{vec.With(labels)}
}

func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := ApplyOptions(opts)
	names, labels := labelNames(cfg.Attributes)

	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: name,
			Help: cfg.Description,
		}, names)
		p.reg.MustRegister(vec)
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	return promHistogram{vec.With(labels)}
}

type promCounter struct{ c prometheus.Counter }

func (p promCounter) Add(n int64) { p.c.Add(float64(n)) }

type promUpDownCounter struct{ g prometheus.Gauge }

func (p promUpDownCounter) Add(n int64) { p.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Observer }

func (p promHistogram) Record(v float64) { p.h.Observe(v) }
