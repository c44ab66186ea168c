package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigilant-run/vigilant-go/internal/api"
)

var collectorAddr string

var collectorCmd = &cobra.Command{
	Use:   "collector",
	Short: "Run a local collector that prints what the SDK sends",
	Long: `Run a local HTTP collector accepting POST /api/message.

Point an SDK at it with endpoint localhost:8080 and insecure enabled. When
--token is set, messages carrying any other token are rejected with 401.
Received messages are logged and listed at GET /api/messages; self-metrics
are served at GET /metrics.`,
	Args: cobra.NoArgs,
	RunE: runCollector,
}

func init() {
	collectorCmd.Flags().StringVar(&collectorAddr, "addr", ":8080", "HTTP listen address")
	rootCmd.AddCommand(collectorCmd)
}

func runCollector(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	srv := &http.Server{
		Addr:         collectorAddr,
		Handler:      api.New(token, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("collector starting", "addr", collectorAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down…")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
