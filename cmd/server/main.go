package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"poemboard/internal/app"
	"poemboard/internal/config"
	httpTransport "poemboard/internal/transport/http"
)

const (
	releaseVersion  = "0.1.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cobra.CheckErr(newCmd(config.Default()).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "poemboard-server",
		Short:         "Relays shared word boards between connected clients.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindEnv(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags(), cfg)
	cmd.SetVersionTemplate("poemboard-server v{{.Version}}\n")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logging.NewLogger(os.Stdout)

	logger.Info("starting poemboard relay",
		"version", releaseVersion,
		"addr", cfg.GetAddr(),
		"heartbeat", cfg.Relay.HeartbeatInterval,
	)

	registry := app.NewRegistry(logger)
	defer registry.Close()

	server := httpTransport.NewServer(cfg, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped",
		"boards", registry.BoardCount(),
		"members", registry.MemberCount(),
	)
	return nil
}
