package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/internal/adapters/media/ffmpeg"
	"github.com/okian/bjjscore/internal/adapters/repository"
	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/config"
	"github.com/okian/bjjscore/internal/export"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/tracing"
)

// initLogging installs the global logger on w with the configured format
// and level.
func initLogging(ctx context.Context, cfg *config.Config, w io.Writer) (logger.Logger, error) {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(w)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return log, nil
}

func tracingSettings(cfg *config.Config) tracing.Settings {
	return tracing.Settings{
		Enabled:     cfg.OTelEndpoint != "",
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName,
	}
}

func mediaSettings(cfg *config.Config) ffmpeg.Settings {
	s := ffmpeg.DefaultSettings()
	s.FFmpegPath = cfg.FFmpegPath
	s.FFprobePath = cfg.FFprobePath
	s.FontFile = cfg.FontFile
	s.VideoCodec = cfg.VideoCodec
	s.AudioCodec = cfg.AudioCodec
	return s
}

// openStore opens the configured project store backend.
func openStore(cfg *config.Config, log logger.Logger) (repository.Store, error) {
	opts := []repository.Option{repository.WithLogger(log.Named("store"))}
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return repository.OpenSQLite(cfg.StorePath, opts...)
	default:
		return repository.NewJSONStore(cfg.StorePath, opts...)
	}
}

// pipeline is the media side shared by serve and export.
type pipeline struct {
	resolver *handle.FileResolver
	prober   *ffmpeg.Prober
	builder  *composition.Builder
	exporter *export.Orchestrator
}

func newPipeline(cfg *config.Config, log logger.Logger) (*pipeline, error) {
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}
	media := mediaSettings(cfg)
	mediaLog := log.Named("ffmpeg")

	resolver := handle.NewFileResolver(log.Named("handle"))
	prober := ffmpeg.NewProber(media, ffmpeg.WithLogger(mediaLog))
	builder := composition.NewBuilder(prober,
		composition.WithLogger(log.Named("compose")),
		composition.WithExportDir(cfg.ExportDir),
	)
	factory := ffmpeg.NewFactory(media, ffmpeg.WithLogger(mediaLog))
	exporter := export.New(resolver, builder, factory,
		export.WithLogger(log.Named("export")),
		export.WithPollInterval(cfg.PollInterval()),
	)
	return &pipeline{
		resolver: resolver,
		prober:   prober,
		builder:  builder,
		exporter: exporter,
	}, nil
}
