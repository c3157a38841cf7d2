// Package metrics provides Prometheus metrics for nspire device handles.
//
// A [Collector] is registered with a caller-supplied registerer and passed to
// a handle with nspire.WithMetrics. All methods are safe on a nil *Collector,
// so instrumented code does not need to check whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardnew/nspire/pkg"
)

// Transfer directions.
const (
	DirectionRead  = "read"
	DirectionWrite = "write"
	DirectionOS    = "os"
)

// Collector holds the device operation metrics.
type Collector struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	transferBytes *prometheus.CounterVec
	openHandles   prometheus.Gauge
}

// New creates a collector and registers it with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nspire_operations_total",
				Help: "Total number of device operations by result",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nspire_operation_duration_seconds",
				Help:    "Device operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"op"},
		),
		transferBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nspire_transfer_bytes_total",
				Help: "Total bytes moved by file and OS transfers",
			},
			[]string{"direction"},
		),
		openHandles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nspire_open_handles",
				Help: "Number of open device handles",
			},
		),
	}

	for _, col := range []prometheus.Collector{c.operations, c.duration, c.transferBytes, c.openHandles} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveOperation records the outcome and duration of one device operation.
// The result label is "ok" or the error kind.
func (c *Collector) ObserveOperation(op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = pkg.KindOf(err).String()
	}
	c.operations.WithLabelValues(op, result).Inc()
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}

// AddTransferBytes records n bytes moved in the given direction.
func (c *Collector) AddTransferBytes(direction string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.transferBytes.WithLabelValues(direction).Add(float64(n))
}

// HandleOpened increments the open handle gauge.
func (c *Collector) HandleOpened() {
	if c == nil {
		return
	}
	c.openHandles.Inc()
}

// HandleClosed decrements the open handle gauge.
func (c *Collector) HandleClosed() {
	if c == nil {
		return
	}
	c.openHandles.Dec()
}
