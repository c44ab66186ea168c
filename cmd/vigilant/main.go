// Command vigilant ships logs, alerts and metrics from the shell, and runs a
// local development collector.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigilant-run/vigilant-go/internal/config"
)

var version = "dev"

// Shared flags
var (
	configPath  string
	name        string
	token       string
	endpoint    string
	insecure    bool
	noop        bool
	passthrough bool
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vigilant",
	Short: "Send logs, alerts and metrics to Vigilant",
	Long: `vigilant ships telemetry to a Vigilant collector from the command line.

Configuration is read from --config (YAML), then VIGILANT_* environment
variables, then flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&name, "name", "", "Service name")
	pf.StringVar(&token, "token", "", "API token")
	pf.StringVar(&endpoint, "endpoint", "", "Collector host (default "+config.DefaultEndpoint+")")
	pf.BoolVar(&insecure, "insecure", false, "Use http instead of https")
	pf.BoolVar(&noop, "noop", false, "Do not send anything")
	pf.BoolVar(&passthrough, "passthrough", false, "Echo events to the console")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose diagnostics")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig layers file, environment and explicitly set flags.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Loader, config.Config, error) {
	loader, err := config.NewLoader(configPath, logger)
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg := loader.Config()
	applyFlags(cmd, &cfg)
	return loader, cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = name
	}
	if flags.Changed("token") {
		cfg.Token = token
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("insecure") {
		cfg.Insecure = insecure
	}
	if flags.Changed("noop") {
		cfg.Noop = noop
	}
	if flags.Changed("passthrough") {
		cfg.Passthrough = passthrough
	}
}

// parsePairs turns repeated key=value flags into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q: want key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
