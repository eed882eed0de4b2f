// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - Load layers defaults, an optional YAML file and BJJSCORE_ env vars.
//   - Errors wrap this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Store drivers.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the project store backend: json or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the project store file.
	StorePath string `koanf:"store_path"`

	// ExportDir receives exported videos.
	ExportDir string `koanf:"export_dir"`

	// PollIntervalMS is the export progress sampling period.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// HistoryCapacity bounds the undo history.
	HistoryCapacity int `koanf:"history_capacity"`

	// FFmpegPath and FFprobePath locate the media tools.
	FFmpegPath  string `koanf:"ffmpeg_path"`
	FFprobePath string `koanf:"ffprobe_path"`

	// FontFile is passed to drawtext; empty uses the fontconfig default.
	FontFile string `koanf:"font_file"`

	// VideoCodec and AudioCodec select the encoders.
	VideoCodec string `koanf:"video_codec"`
	AudioCodec string `koanf:"audio_codec"`

	// OTelEndpoint enables OTLP/HTTP tracing when set.
	OTelEndpoint string `koanf:"otel_endpoint"`

	// ServiceName names the service in traces.
	ServiceName string `koanf:"service_name"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		StoreDriver:     StoreJSON,
		StorePath:       "projects.json",
		ExportDir:       "exports",
		PollIntervalMS:  200,
		HistoryCapacity: 50,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		VideoCodec:      "libx264",
		AudioCodec:      "aac",
		ServiceName:     "bjjscore",
	}
}

// PollInterval returns the progress sampling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{StoreJSON, StoreSQLite}, c.StoreDriver):
		return fmt.Errorf("%w: store_driver %q must be json or sqlite", ErrInvalidConfig, c.StoreDriver)
	case c.StorePath == "":
		return fmt.Errorf("%w: store_path must not be empty", ErrInvalidConfig)
	case c.ExportDir == "":
		return fmt.Errorf("%w: export_dir must not be empty", ErrInvalidConfig)
	case c.PollIntervalMS <= 0:
		return fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	case c.HistoryCapacity <= 0:
		return fmt.Errorf("%w: history_capacity must be positive", ErrInvalidConfig)
	case !slices.Contains([]string{"text", "json"}, c.LogFormat):
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
