package nursery

import (
	"log/slog"

	"github.com/lunascript/taskflow/pkg/metrics"
)

type config struct {
	name   string
	logger *slog.Logger
	reg    *metrics.Registry
}

func defaultConfig() config {
	return config{
		name: "nursery",
	}
}

// Option configures a nursery created by Run.
type Option func(*config)

// WithName sets the nursery name used in metrics labels and log records.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger enables structured logging of suppressed task failures. The
// first failure always wins the relay; later concurrent failures are
// discarded, and this logger is the only way to observe them.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation on the given registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *config) {
		c.reg = reg
	}
}
