package service

import (
	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHistoryCapacity bounds the undo history of the timeline.
func WithHistoryCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.historyCapacity = capacity
		}
	}
}

// WithOpener enables probing imported sources for their duration.
func WithOpener(o composition.Opener) Option {
	return func(s *Service) {
		s.opener = o
	}
}
