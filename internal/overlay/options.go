package overlay

import (
	"github.com/okian/bjjscore/pkg/logger"
)

// Option configures a Compositor.
type Option func(*Compositor)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTheme overrides the scoreboard colours.
func WithTheme(t Theme) Option {
	return func(c *Compositor) {
		c.theme = t
	}
}
