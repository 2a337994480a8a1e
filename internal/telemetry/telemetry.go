// Package telemetry exposes Prometheus instrumentation for the metrics
// engine and the write path around it.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric label values for the recalculation counter.
const (
	MetricOnTimeDelivery  = "on_time_delivery_rate"
	MetricQualityRating   = "quality_rating_avg"
	MetricResponseTime    = "average_response_time"
	MetricFulfillmentRate = "fulfillment_rate"
)

// Registry bundles the service's Prometheus collectors.
type Registry struct {
	reg             *prometheus.Registry
	Recalcs         *prometheus.CounterVec
	Acknowledgments prometheus.Counter
	WriteLatencySec prometheus.Histogram
}

// NewRegistry creates and registers all collectors on a private registry.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	recalcs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorpulse_metric_recalcs_total",
		Help: "Vendor aggregate recalculations, by metric.",
	}, []string{"metric"})
	acks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vendorpulse_acknowledgments_total",
		Help: "Purchase order acknowledgments.",
	})
	writeLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vendorpulse_write_tx_latency_seconds",
		Help:    "Latency of metric-bearing write transactions.",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(recalcs, acks, writeLatency)
	return &Registry{
		reg:             r,
		Recalcs:         recalcs,
		Acknowledgments: acks,
		WriteLatencySec: writeLatency,
	}
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// CountRecalc increments the recalculation counter for a metric.
// Safe to call on a nil Registry.
func (r *Registry) CountRecalc(metric string) {
	if r == nil {
		return
	}
	r.Recalcs.WithLabelValues(metric).Inc()
}

// CountAcknowledgment increments the acknowledgment counter.
// Safe to call on a nil Registry.
func (r *Registry) CountAcknowledgment() {
	if r == nil {
		return
	}
	r.Acknowledgments.Inc()
}

// ObserveWriteLatency records one write-transaction latency sample.
// Safe to call on a nil Registry.
func (r *Registry) ObserveWriteLatency(seconds float64) {
	if r == nil {
		return
	}
	r.WriteLatencySec.Observe(seconds)
}
