package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/bjjscore/internal/adapters/http/api"
	service "github.com/okian/bjjscore/internal/app"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/tracing"
)

// HTTP server timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scoring HTTP API",
		Long: `Run the HTTP API over the project catalog: projects, timeline editing
with undo/redo, notes and background exports. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, addr, cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config addr)")

	return cmd
}

func runServe(parent context.Context, opts *RootOptions, addr string, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.LoadConfig(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	log, err := initLogging(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "logging", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Error(ctx, "logger sync failed", logger.Error(err))
		}
	}()

	shutdownTracing, err := tracing.Setup(ctx, tracingSettings(cfg))
	if err != nil {
		return WrapExitError(ExitCommandError, "tracing", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	store, err := openStore(cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	pipe, err := newPipeline(cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "media pipeline", err)
	}

	svc := service.New(
		service.NewCatalog(store, log.Named("catalog")),
		pipe.exporter,
		pipe.resolver,
		service.WithLogger(log.Named("service")),
		service.WithHistoryCapacity(cfg.HistoryCapacity),
		service.WithOpener(pipe.prober),
	)
	if err := svc.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "start service", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	mux := http.NewServeMux()
	api.NewServer(svc, api.WithServerLogger(log.Named("http"))).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return WrapExitError(ExitFailure, "http server", err)
		}
	}
	log.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}
