package nspire

import (
	"log/slog"

	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/pkg/metrics"
)

// Option configures a Handle.
type Option func(*config)

type config struct {
	engine  engine.Engine
	logger  *slog.Logger
	metrics *metrics.Collector
}

func newConfig(opts []Option) config {
	cfg := config{engine: defaultEngine()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithEngine selects the protocol engine. Without it, Open uses the native
// libnspire engine when the package is built with cgo and the libnspire
// build tag, and fails with [pkg.ErrNotSupported] otherwise.
func WithEngine(e engine.Engine) Option {
	return func(c *config) {
		c.engine = e
	}
}

// WithLogger sets the logger used by the handle instead of the package
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics records handle operations with the given collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *config) {
		c.metrics = m
	}
}
