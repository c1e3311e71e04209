package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"promo-quiz/internal/config"
	transport "promo-quiz/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	set, err := d.service.Preflight(ctx)
	if err != nil {
		slog.Error("question set failed validation", "set", cfg.Questions.Set, "error", err)
		return err
	}
	slog.Info("question set loaded", "set", set.ID, "questions", len(set.Questions))

	wsHandler := transport.NewWSHandler(d.service, transport.PlayOptions{
		Tick:          config.TTLDuration(cfg.Quiz.Tick, time.Second),
		RevealDelay:   config.TTLDuration(cfg.Quiz.RevealDelay, time.Second),
		RouletteFrame: cfg.Roulette.Frames,
	})
	apiHandler := transport.NewAPIHandler(d.service, d.exporter, cfg.Raffle.Frames)

	mux := http.NewServeMux()
	transport.Register(mux, apiHandler, wsHandler)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting quiz service", "port", finalPort, "backend", cfg.Store.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
