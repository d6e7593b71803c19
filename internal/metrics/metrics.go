// Package metrics holds the Prometheus collectors for quoting and rule refresh.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parkspot-backend/internal/domain"
)

const namespace = "parkspot"

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	QuotesTotal      *prometheus.CounterVec
	QuoteDuration    prometheus.Histogram
	DiscountsApplied *prometheus.CounterVec
	VATExemptQuotes  prometheus.Counter
	RuleRefreshes    *prometheus.CounterVec
	RuleIssues       prometheus.Counter
	RulesLoaded      prometheus.Gauge
}

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QuotesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "requests_total",
			Help:      "Booking cost calculations by outcome.",
		}, []string{"outcome"}),
		QuoteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "duration_seconds",
			Help:      "Time spent producing a booking cost breakdown.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		DiscountsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discount",
			Name:      "applied_total",
			Help:      "Discounts applied to quotes by discount type.",
		}, []string{"type"}),
		VATExemptQuotes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vat",
			Name:      "exempt_quotes_total",
			Help:      "Quotes that were VAT exempt.",
		}),
		RuleRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "refresh_total",
			Help:      "Discount rule refreshes by outcome.",
		}, []string{"outcome"}),
		RuleIssues: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "validation_issues_total",
			Help:      "Validation issues found in loaded discount rules.",
		}),
		RulesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "loaded",
			Help:      "Discount rules currently held by the engine.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveQuote(started time.Time, err error) {
	m.QuoteDuration.Observe(time.Since(started).Seconds())
	m.QuotesTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) RecordDiscounts(discounts []domain.AppliedDiscount, vatExempt bool) {
	for _, d := range discounts {
		m.DiscountsApplied.WithLabelValues(string(d.Type)).Inc()
	}
	if vatExempt {
		m.VATExemptQuotes.Inc()
	}
}

func (m *Metrics) RecordRefresh(loaded, issues int, err error) {
	m.RuleRefreshes.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return
	}
	m.RulesLoaded.Set(float64(loaded))
	m.RuleIssues.Add(float64(issues))
}

// SetRulesLoaded tracks the registry size after admin edits.
func (m *Metrics) SetRulesLoaded(n int) {
	m.RulesLoaded.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
