package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caricature_studio/imagegen"
)

// Collector exports generation and HTTP metrics on its own registry.
// It implements imagegen.Observer.
type Collector struct {
	registry *prometheus.Registry

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	fallbacksTotal     *prometheus.CounterVec
	creditsCharged     prometheus.Counter
	inFlight           prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector registers the studio metrics under namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Finished caricature generations by provider and outcome",
			},
			[]string{"provider", "outcome", "error_kind"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Wall time of an orchestrated generation",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"provider"},
		),
		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_fallbacks_total",
				Help:      "Generations sent to the quota fallback model, by outcome",
			},
			[]string{"provider", "outcome"},
		),
		creditsCharged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_charged_total",
			Help:      "Credits deducted after successful generations",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generations_in_flight",
			Help:      "Generations currently running",
		}),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (c *Collector) ObserveGeneration(provider imagegen.ProviderKind, kind imagegen.ErrorKind, usedFallback bool, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if kind != "" {
		outcome = OutcomeFailed
	}
	c.generationsTotal.WithLabelValues(string(provider), outcome, string(kind)).Inc()
	c.generationDuration.WithLabelValues(string(provider)).Observe(elapsed.Seconds())
	if usedFallback {
		c.fallbacksTotal.WithLabelValues(string(provider), outcome).Inc()
	}
}

func (c *Collector) CreditCharged() {
	c.creditsCharged.Inc()
}

// GenerationStarted and GenerationDone bracket a running generation.
func (c *Collector) GenerationStarted() {
	c.inFlight.Inc()
}

func (c *Collector) GenerationDone() {
	c.inFlight.Dec()
}

// RecordHTTPRequest records one served request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observers fans an observation out to several observers.
type Observers []imagegen.Observer

func (o Observers) ObserveGeneration(provider imagegen.ProviderKind, kind imagegen.ErrorKind, usedFallback bool, elapsed time.Duration) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveGeneration(provider, kind, usedFallback, elapsed)
		}
	}
}
