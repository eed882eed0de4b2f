package composition

import (
	"github.com/okian/bjjscore/internal/overlay"
	"github.com/okian/bjjscore/pkg/logger"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithExportDir sets the directory export files are written to.
func WithExportDir(dir string) Option {
	return func(b *Builder) {
		if dir != "" {
			b.exportDir = dir
		}
	}
}

// WithCompositor overrides the overlay compositor.
func WithCompositor(c *overlay.Compositor) Option {
	return func(b *Builder) {
		if c != nil {
			b.compositor = c
		}
	}
}
