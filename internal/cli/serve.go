package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/BrandonDHaskell/doorlock/internal/config"
	"github.com/BrandonDHaskell/doorlock/internal/grpcapi"
	"github.com/BrandonDHaskell/doorlock/internal/httpapi"
	"github.com/BrandonDHaskell/doorlock/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	HTTPAddr string
	GRPCAddr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and gRPC health endpoint",
		Long: `Open the database, make sure the lock state exists, and serve the
HTTP JSON API until SIGINT or SIGTERM.

Examples:
  doorlock-server serve
  doorlock-server serve --http-addr :8080 --grpc-addr off
  DOORLOCK_ENV=prod doorlock-server --config /etc/doorlock.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&opts.GRPCAddr, "grpc-addr", "", `gRPC health listen address, "off" disables (overrides config)`)

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.HTTPAddr != "" {
		cfg.HTTPAddr = opts.HTTPAddr
	}
	switch opts.GRPCAddr {
	case "":
	case "off":
		cfg.GRPCAddr = ""
	default:
		cfg.GRPCAddr = opts.GRPCAddr
	}

	logger := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, Output: os.Stdout})

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("db", cfg.DBPath).Msg("startup failed")
		return WrapExitError(ExitFailure, "failed to start", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("close database")
		}
	}()

	httpSrv := httpapi.NewServer(httpapi.Dependencies{
		Logger:       logger,
		Addr:         cfg.HTTPAddr,
		LockService:  a.service,
		CORSOrigin:   cfg.CORSOrigin,
		WriteLimiter: writeLimiter(cfg),
	})

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBPath).Msg("listening")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	var (
		grpcSrv *grpcapi.Server
		prober  *grpcapi.Prober
	)
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{Logger: logger, Addr: cfg.GRPCAddr})
		prober = grpcapi.NewProber(a.db, grpcSrv, grpcapi.ProberConfig{
			Interval: cfg.HealthInterval(),
			Timeout:  cfg.StorageTimeout(),
		}, logger)
		prober.Start(ctx)

		go func() {
			if err := grpcSrv.Start(); err != nil {
				errCh <- err
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if prober != nil {
		prober.Stop()
	}
	if grpcSrv != nil {
		_ = grpcSrv.Shutdown(shutdownCtx)
	}
	_ = httpSrv.Shutdown(shutdownCtx)

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return WrapExitError(ExitFailure, "server error", err)
	default:
		return nil
	}
}

// writeLimiter returns nil (unlimited) unless a positive rate is configured.
func writeLimiter(cfg config.Config) *rate.Limiter {
	if cfg.WriteRatePerSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.WriteRatePerSec), cfg.WriteBurst)
}

// quietLogger is used by one-shot commands.  It writes to stderr so stdout
// stays machine-readable, and defaults to warn unless --log-level is set.
func quietLogger(opts *RootOptions, cfg config.Config) zerolog.Logger {
	level := "warn"
	if opts.LogLevel != "" {
		level = cfg.LogLevel
	}
	return logging.New(logging.Options{Env: cfg.Env, Level: level, Output: os.Stderr})
}
