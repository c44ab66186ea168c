package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	vigilant "github.com/vigilant-run/vigilant-go"
	"github.com/vigilant-run/vigilant-go/internal/config"
	"github.com/vigilant-run/vigilant-go/internal/event"
	"github.com/vigilant-run/vigilant-go/internal/messages"
)

const shutdownTimeout = 15 * time.Second

var (
	pipeLevel   string
	pipeAttrs   []string
	metricsAddr string
)

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Ship every line read from stdin as a log",
	Long: `Read stdin line by line and ship each non-empty line as a log.

Global attributes from --config are hot-reloaded when the file changes.

Examples:
  ./server 2>&1 | vigilant pipe --name api --token $TOKEN
  tail -f app.log | vigilant pipe --config vigilant.yaml --level warn`,
	Args: cobra.NoArgs,
	RunE: runPipe,
}

func init() {
	pipeCmd.Flags().StringVarP(&pipeLevel, "level", "l", "info", "Level for every line: error, warn, info, debug, trace")
	pipeCmd.Flags().StringArrayVarP(&pipeAttrs, "attr", "a", nil, "Attribute key=value attached to every line (repeatable)")
	pipeCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve SDK self-metrics on this address, e.g. :9090")

	rootCmd.AddCommand(pipeCmd)
}

func parseLevel(s string) (event.Level, error) {
	level := event.Level(strings.ToUpper(strings.TrimSpace(s)))
	switch level {
	case event.LevelError, event.LevelWarn, event.LevelInfo, event.LevelDebug, event.LevelTrace:
		return level, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

func runPipe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	level, err := parseLevel(pipeLevel)
	if err != nil {
		return err
	}
	attrs, err := parsePairs(pipeAttrs)
	if err != nil {
		return err
	}

	loader, cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}
	agent, err := vigilant.Init(cfg, vigilant.WithLogger(logger))
	if err != nil {
		vigilant.PrintUsage(os.Stderr, err)
		return err
	}
	if cfg.Noop {
		fmt.Fprint(os.Stderr, messages.NewPrinter(os.Stderr).Warning("Noop mode is enabled. Nothing will be sent."))
	}

	if configPath != "" {
		loader.OnChange(func(c *config.Config) {
			agent.SetGlobalAttributes(c.Attributes)
			logger.Info("global attributes reloaded", "count", len(c.Attributes))
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			logger.Warn("config watcher unavailable (hot-reload disabled)", "error", err)
		} else {
			defer stopWatch()
		}
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
		defer srv.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	emit := logFunc(agent, level)

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		emit(ctx, line, attrs)
	}
	readErr := sc.Err()

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := vigilant.Shutdown(shutCtx); err != nil && !errors.Is(err, vigilant.ErrNotInitialized) {
		return err
	}
	if readErr != nil {
		return fmt.Errorf("read stdin: %w", readErr)
	}
	return nil
}

func logFunc(a *vigilant.Agent, level event.Level) func(context.Context, string, map[string]string) {
	switch level {
	case event.LevelError:
		return a.LogError
	case event.LevelWarn:
		return a.LogWarn
	case event.LevelDebug:
		return a.LogDebug
	case event.LevelTrace:
		return a.LogTrace
	default:
		return a.LogInfo
	}
}
