// Package metrics exposes Prometheus instrumentation for provider calls and
// API requests.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
)

const namespace = "zkblueprint"

type Metrics struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	providerDuration prometheus.Histogram
	apiRequests      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "LLM provider calls by outcome.",
		}, []string{"status"}),
		providerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "LLM provider call latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests by route, agent and response code.",
		}, []string{"route", "agent", "code"}),
	}
	reg.MustRegister(m.providerRequests, m.providerDuration, m.apiRequests)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveAPI counts one finished API request.
func (m *Metrics) ObserveAPI(route, agent string, code int) {
	m.apiRequests.WithLabelValues(route, agent, strconv.Itoa(code)).Inc()
}

type instrumented struct {
	inner llm.Provider
	m     *Metrics
}

// Instrument wraps p so every call is counted and timed.
func (m *Metrics) Instrument(p llm.Provider) llm.Provider {
	return &instrumented{inner: p, m: m}
}

func (i *instrumented) Send(ctx context.Context, system string, messages []llm.Message, params llm.Params) (string, error) {
	start := time.Now()
	reply, err := i.inner.Send(ctx, system, messages, params)
	i.m.providerDuration.Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "cancelled"
	default:
		status = "error"
	}
	i.m.providerRequests.WithLabelValues(status).Inc()
	return reply, err
}
