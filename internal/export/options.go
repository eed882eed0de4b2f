package export

import (
	"time"

	"github.com/okian/bjjscore/pkg/logger"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPollInterval sets how often encoder progress is sampled.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgressBuffer sets the capacity of each run's progress channel.
func WithProgressBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.progressBuffer = n
		}
	}
}
