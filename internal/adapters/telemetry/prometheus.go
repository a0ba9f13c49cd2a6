package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes metric names when the config leaves it empty.
const DefaultNamespace = "prisma_filter"

// PrometheusTelemetry implements Telemetry using Prometheus metrics.
type PrometheusTelemetry struct {
	compileTotal    *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	dropTotal       *prometheus.CounterVec
	cacheHits       prometheus.Counter
}

// NewPrometheusTelemetry registers the filter metrics with reg. A nil reg
// uses the default registerer.
func NewPrometheusTelemetry(config *Config, reg prometheus.Registerer) *PrometheusTelemetry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := DefaultNamespace
	if config != nil && config.Namespace != "" {
		ns = config.Namespace
	}
	factory := promauto.With(reg)

	return &PrometheusTelemetry{
		compileTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "compilations_total",
			Help:      "Filter compilations by entity, outcome and error kind.",
		}, []string{"entity", "outcome", "kind"}),
		compileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "compile_duration_seconds",
			Help:      "Time spent parsing and compiling a filter.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"entity"}),
		dropTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dropped_clauses_total",
			Help:      "Filter fragments discarded by the forgiving policy.",
		}, []string{"entity", "reason"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "parse_cache_hits_total",
			Help:      "Raw filters served from the parse cache.",
		}),
	}
}

// RecordCompile records a compilation.
func (p *PrometheusTelemetry) RecordCompile(ctx context.Context, info CompileInfo) {
	p.compileTotal.WithLabelValues(info.Entity, string(info.Outcome), info.Kind).Inc()
	p.compileDuration.WithLabelValues(info.Entity).Observe(info.Duration.Seconds())
	if info.Cached {
		p.cacheHits.Inc()
	}
}

// RecordDrop records a dropped fragment.
func (p *PrometheusTelemetry) RecordDrop(ctx context.Context, info DropInfo) {
	p.dropTotal.WithLabelValues(info.Entity, info.Reason).Inc()
}

// Flush does nothing; Prometheus pulls.
func (p *PrometheusTelemetry) Flush(ctx context.Context) error {
	return nil
}

// Close does nothing.
func (p *PrometheusTelemetry) Close(ctx context.Context) error {
	return nil
}

var _ Telemetry = (*PrometheusTelemetry)(nil)
