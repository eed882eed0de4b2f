package repository

import "github.com/okian/bjjscore/pkg/logger"

type config struct {
	log    logger.Logger
	indent string
}

// Option applies a configuration option to a store.
type Option func(*config)

// WithLogger sets the logger used by the store.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithIndent sets the JSON indentation used by the file store. An empty
// string writes compact JSON.
func WithIndent(indent string) Option {
	return func(c *config) {
		c.indent = indent
	}
}

func buildConfig(opts []Option) config {
	c := config{log: logger.NewNop(), indent: "  "}
	for _, opt := range opts {
		opt(&c)
	}
	c.log = c.log.Named("store")
	return c
}
