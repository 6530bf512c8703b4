// Package metrics exports search statistics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	zxunwarp "github.com/ericlevine/zxunwarp"
)

// Namespace prefixes every metric name.
const Namespace = "zxunwarp"

// Collector implements zxunwarp.Observer on top of Prometheus metrics.
type Collector struct {
	searches       *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	variants       *prometheus.CounterVec
	attempts       *prometheus.CounterVec
	faults         *prometheus.CounterVec
}

// New registers the search metrics on reg. Use prometheus.NewRegistry for
// an isolated registry, or prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		searches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "searches_total",
				Help:      "Total number of warp searches",
			},
			[]string{"policy", "outcome"}, // outcome: found, exhausted
		),
		searchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "search_duration_seconds",
				Help:      "Warp search duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"policy"},
		),
		variants: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "variants_probed_total",
				Help:      "Corrected images handed to the dispatcher, by warp variant",
			},
			[]string{"variant"},
		),
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "backend_attempts_total",
				Help:      "Back-end decode attempts that returned without fault",
			},
			[]string{"backend", "result"}, // result: found, empty
		),
		faults: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "backend_faults_total",
				Help:      "Back-end decode attempts that failed or panicked",
			},
			[]string{"backend"},
		),
	}
}

var _ zxunwarp.Observer = (*Collector)(nil)

// VariantProbed implements zxunwarp.Observer.
func (c *Collector) VariantProbed(variant int) {
	c.variants.WithLabelValues(strconv.Itoa(variant)).Inc()
}

// BackendAttempt implements zxunwarp.Observer.
func (c *Collector) BackendAttempt(backend string, found bool) {
	result := "empty"
	if found {
		result = "found"
	}
	c.attempts.WithLabelValues(backend, result).Inc()
}

// BackendFault implements zxunwarp.Observer.
func (c *Collector) BackendFault(backend string) {
	c.faults.WithLabelValues(backend).Inc()
}

// SearchFinished implements zxunwarp.Observer.
func (c *Collector) SearchFinished(policy zxunwarp.StrategyPolicy, found bool, elapsed time.Duration) {
	outcome := "exhausted"
	if found {
		outcome = "found"
	}
	c.searches.WithLabelValues(policy.String(), outcome).Inc()
	c.searchDuration.WithLabelValues(policy.String()).Observe(elapsed.Seconds())
}
