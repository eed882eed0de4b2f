package cli

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/export"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/tracing"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	ProjectPath string
	SourcePath  string
	OutDir      string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project's video with the scoreboard overlay",
		Long: `Render the project's source video with the scoreboard overlay burned in.
Progress is written to stderr and the result to stdout. A stale source handle
is refreshed and written back to the project file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ProjectPath, "project", "p", "", "project file (json or yaml)")
	cmd.Flags().StringVarP(&opts.SourcePath, "source", "s", "", "source video; overrides the project's stored source")
	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "export directory (overrides config export_dir)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runExport(parent context.Context, rootOpts *RootOptions, opts *ExportOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := rootOpts.LoadConfig(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.OutDir != "" {
		cfg.ExportDir = opts.OutDir
	}
	log, err := initLogging(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "logging", err)
	}
	shutdownTracing, err := tracing.Setup(ctx, tracingSettings(cfg))
	if err != nil {
		return WrapExitError(ExitCommandError, "tracing", err)
	}
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	p, err := readProject(opts.ProjectPath)
	if err != nil {
		return err
	}
	pipe, err := newPipeline(cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "media pipeline", err)
	}
	defer func() {
		if err := pipe.exporter.Close(); err != nil {
			log.Warn(ctx, "exporter close failed", logger.Error(err))
		}
	}()

	h := handle.Handle(slices.Clone(p.SourceHandle))
	var onRefresh export.RefreshFunc
	if opts.SourcePath != "" {
		if h, err = pipe.resolver.Create(ctx, opts.SourcePath); err != nil {
			return WrapExitError(ExitCommandError, "source", err)
		}
	} else {
		onRefresh = func(_ uuid.UUID, fresh handle.Handle) {
			p.SourceHandle = fresh
			if err := writeProject(opts.ProjectPath, p); err != nil {
				log.Warn(ctx, "persist refreshed handle failed", logger.Error(err))
			}
		}
	}
	if len(h) == 0 {
		return WrapExitError(ExitCommandError, "source", export.ErrNoSource)
	}

	run, ok := pipe.exporter.Start(ctx, export.Request{
		ProjectID: p.ID,
		Handle:    h,
		Composition: composition.Request{
			Events:      p.Events,
			Notes:       p.Notes,
			Metadata:    p.Metadata,
			Preferences: p.ExportPreferences,
		},
		OnRefresh: onRefresh,
	})
	if !ok {
		return NewExitError(ExitFailure, "export could not start")
	}

	res := awaitExport(ctx, pipe.exporter, run, formatter(rootOpts, cmd))
	if err := formatter(rootOpts, cmd).Print(res); err != nil {
		return err
	}
	if res.Outcome != export.OutcomeCompleted {
		return WrapExitError(ExitFailure, fmt.Sprintf("export %s", res.Outcome), res.Err)
	}
	return nil
}

// awaitExport reports whole-percent progress until the run ends. Cancelling
// ctx cancels the export.
func awaitExport(ctx context.Context, exporter *export.Orchestrator, run *export.Run, f *OutputFormatter) export.Result {
	last := -1
	progress := run.Progress
	for progress != nil {
		select {
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			if pct := int(p * 100); pct > last {
				last = pct
				fmt.Fprintf(f.ErrWriter, "export %3d%%\n", pct)
			}
		case <-ctx.Done():
			exporter.Cancel()
			ctx = context.Background()
		}
	}
	return <-run.Result
}
