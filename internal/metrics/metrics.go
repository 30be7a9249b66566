// Package metrics exports invocation telemetry as Prometheus collectors.
//
// A Collector owns its own registry so several engines (or tests) never
// collide on metric names. It implements engine.Observer.
package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/appcore/internal/engine"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "appcore"

// Collector records finished invocations.
type Collector struct {
	registry *prometheus.Registry

	invocations *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewCollector creates a collector with a fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invocation",
			Name:      "total",
			Help:      "Total number of finished invocations",
		},
		[]string{"command", "method", "outcome", "error_name"},
	)

	c.refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invocation",
			Name:      "auth_refresh_total",
			Help:      "Total number of invocations that refreshed credentials",
		},
		[]string{"method", "outcome"},
	)

	c.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of outgoing requests made by invocations",
		},
		[]string{"method"},
	)

	c.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "invocation",
			Name:      "duration_seconds",
			Help:      "Time taken by an invocation, refresh and retry included",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"method", "outcome"},
	)

	c.registry.MustRegister(c.invocations, c.refreshes, c.requests, c.duration)
	return c
}

// InvocationCompleted implements engine.Observer.
func (c *Collector) InvocationCompleted(_ context.Context, ev engine.Event) {
	c.invocations.WithLabelValues(ev.Command, ev.Method, ev.Outcome, ev.ErrorName).Inc()
	if ev.Refreshed {
		c.refreshes.WithLabelValues(ev.Method, ev.Outcome).Inc()
	}
	if ev.Requests > 0 {
		c.requests.WithLabelValues(ev.Method).Add(float64(ev.Requests))
	}
	c.duration.WithLabelValues(ev.Method, ev.Outcome).Observe(ev.Duration.Seconds())
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes every metric family in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

var _ engine.Observer = (*Collector)(nil)
