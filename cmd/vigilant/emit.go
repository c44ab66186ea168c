package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	vigilant "github.com/vigilant-run/vigilant-go"
	"github.com/vigilant-run/vigilant-go/internal/event"
)

var (
	alertAttrs []string
	metricTags []string
)

var alertCmd = &cobra.Command{
	Use:     "alert TITLE",
	Short:   "Create an alert",
	Example: `  vigilant alert "disk full" --attr host=db1 --name api --token $TOKEN`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAlert,
}

var metricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Record a counter, gauge or histogram value",
}

func init() {
	alertCmd.Flags().StringArrayVarP(&alertAttrs, "attr", "a", nil, "Attribute key=value (repeatable)")
	rootCmd.AddCommand(alertCmd)

	for _, kind := range []event.Kind{event.KindCounter, event.KindGauge, event.KindHistogram} {
		sub := &cobra.Command{
			Use:   string(kind) + " NAME VALUE",
			Short: "Record a " + string(kind) + " value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMetric(cmd, kind, args[0], args[1])
			},
		}
		sub.Flags().StringArrayVarP(&metricTags, "tag", "t", nil, "Tag key=value (repeatable)")
		metricCmd.AddCommand(sub)
	}
	rootCmd.AddCommand(metricCmd)
}

// startAgent loads config and starts a private agent for a one-shot command.
func startAgent(cmd *cobra.Command) (*vigilant.Agent, error) {
	logger := newLogger()
	_, cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return nil, err
	}
	agent, err := vigilant.New(cfg, vigilant.WithLogger(logger))
	if err != nil {
		vigilant.PrintUsage(os.Stderr, err)
		return nil, err
	}
	agent.Start()
	return agent, nil
}

func stopAgent(agent *vigilant.Agent) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return agent.Shutdown(ctx)
}

func runAlert(cmd *cobra.Command, args []string) error {
	attrs, err := parsePairs(alertAttrs)
	if err != nil {
		return err
	}
	agent, err := startAgent(cmd)
	if err != nil {
		return err
	}
	agent.CreateAlert(context.Background(), args[0], attrs)
	return stopAgent(agent)
}

func runMetric(cmd *cobra.Command, kind event.Kind, name, raw string) error {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", raw, err)
	}
	tags, err := parsePairs(metricTags)
	if err != nil {
		return err
	}
	agent, err := startAgent(cmd)
	if err != nil {
		return err
	}
	switch kind {
	case event.KindCounter:
		agent.MetricCounter(name, value, tags)
	case event.KindGauge:
		agent.MetricGauge(name, value, tags)
	case event.KindHistogram:
		agent.MetricHistogram(name, value, tags)
	}
	return stopAgent(agent)
}
