// Package ffmpeg probes source media with ffprobe and renders export
// packages with ffmpeg.
package ffmpeg

import (
	"context"
	"os/exec"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/pkg/logger"
)

// Settings selects binaries and codecs.
type Settings struct {
	FFmpegPath  string
	FFprobePath string
	FontFile    string
	VideoCodec  string
	AudioCodec  string
	Preset      string
}

// DefaultSettings uses binaries from PATH with H.264 and AAC.
func DefaultSettings() Settings {
	return Settings{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		VideoCodec:  "libx264",
		AudioCodec:  "aac",
		Preset:      "veryfast",
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.FFmpegPath == "" {
		s.FFmpegPath = d.FFmpegPath
	}
	if s.FFprobePath == "" {
		s.FFprobePath = d.FFprobePath
	}
	if s.VideoCodec == "" {
		s.VideoCodec = d.VideoCodec
	}
	if s.AudioCodec == "" {
		s.AudioCodec = d.AudioCodec
	}
	if s.Preset == "" {
		s.Preset = d.Preset
	}
	return s
}

// runFunc runs a command to completion and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ImagePathFunc maps a stored watermark handle to a readable path.
type ImagePathFunc func(h handle.Handle) (string, error)

// Option configures the prober and factory.
type Option func(*options)

type options struct {
	logger    logger.Logger
	run       runFunc
	imagePath ImagePathFunc
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithImagePath overrides how watermark handles become file paths.
func WithImagePath(f ImagePathFunc) Option {
	return func(o *options) {
		if f != nil {
			o.imagePath = f
		}
	}
}

func withRunner(r runFunc) Option {
	return func(o *options) {
		o.run = r
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    logger.Named("ffmpeg"),
		run:       runCommand,
		imagePath: handle.Path,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
