// Package metrics exposes Prometheus instrumentation for the webhook
// pipeline and entitlement queries.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const maxLabelLen = 64

func sanitizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

// Metrics holds the application collectors.
type Metrics struct {
	webhookRequests  *prometheus.CounterVec
	webhookDuration  *prometheus.HistogramVec
	entitlementCheck *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the singleton, registered with the default registerer on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = New(prometheus.DefaultRegisterer)
	})
	return instance
}

// New creates collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizdesk",
				Name:      "webhook_requests_total",
				Help:      "Stripe webhook deliveries by event type and response status",
			},
			[]string{"type", "status"},
		),
		webhookDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bizdesk",
				Name:      "webhook_duration_seconds",
				Help:      "Time spent handling a Stripe webhook delivery",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		entitlementCheck: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bizdesk",
				Name:      "entitlement_checks_total",
				Help:      "Entitlement queries by result (entitled, not_entitled, error)",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.webhookRequests, m.webhookDuration, m.entitlementCheck)
	}
	return m
}

// RecordWebhook counts one delivery and observes its duration.
func (m *Metrics) RecordWebhook(eventType string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	t := sanitizeLabel(eventType)
	m.webhookRequests.WithLabelValues(t, statusLabel(status)).Inc()
	m.webhookDuration.WithLabelValues(t).Observe(elapsed.Seconds())
}

// RecordEntitlementCheck counts one query outcome.
func (m *Metrics) RecordEntitlementCheck(result string) {
	if m == nil {
		return
	}
	m.entitlementCheck.WithLabelValues(sanitizeLabel(result)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
