package vigilant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vigilant-run/vigilant-go/internal/attributes"
	"github.com/vigilant-run/vigilant-go/internal/autocapture"
	"github.com/vigilant-run/vigilant-go/internal/batch"
	"github.com/vigilant-run/vigilant-go/internal/collector"
	"github.com/vigilant-run/vigilant-go/internal/config"
	"github.com/vigilant-run/vigilant-go/internal/event"
	"github.com/vigilant-run/vigilant-go/internal/messages"
	"github.com/vigilant-run/vigilant-go/internal/metrics"
	"github.com/vigilant-run/vigilant-go/internal/transport"
)

// Option customises an Agent.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	appenders  []attributes.Appender
}

// WithLogger routes the SDK's own diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient sends every request through client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithAppender adds an attribute appender that runs after the built-in ones.
func WithAppender(a attributes.Appender) Option {
	return func(o *options) { o.appenders = append(o.appenders, a) }
}

// Agent owns the log, alert and metric pipelines of one service.
type Agent struct {
	cfg    config.Config
	logger *slog.Logger
	diag   io.Writer

	storage attributes.Storage
	global  *attributes.Global
	attrs   *attributes.Provider
	capture autocapture.Provider

	logs    *batch.Batcher[event.Log]
	alerts  *batch.Batcher[event.Alert]
	metrics *collector.Collector

	mu      sync.Mutex
	started bool

	tokenWarning sync.Once
}

// New validates cfg and builds a stopped Agent.
func New(cfg config.Config, opts ...Option) (*Agent, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	config.ApplyDefaults(&cfg)
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("vigilant: %w", err)
	}

	// Bound before autocapture swaps the standard streams, so SDK output is
	// never captured back into the pipeline.
	diag := io.Writer(os.Stderr)
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(diag, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	logger = logger.With("service", cfg.Name)

	client, err := transport.New(transport.Endpoint(cfg.Endpoint, cfg.Insecure), o.httpClient)
	if err != nil {
		return nil, fmt.Errorf("vigilant: %w", err)
	}

	a := &Agent{
		cfg:     cfg,
		logger:  logger,
		diag:    diag,
		storage: attributes.Detect(!cfg.DisableAttributeStorage, logger),
		global:  attributes.NewGlobal(cfg.Attributes),
		capture: autocapture.Select(cfg.Autocapture),
	}
	chain := []attributes.Appender{
		attributes.ServiceName(cfg.Name),
		attributes.Stored(a.storage),
		a.global,
	}
	a.attrs = attributes.NewProvider(append(chain, o.appenders...)...)

	a.logs = batch.New(client, transport.LogsPayload(cfg.Token), batch.Options{
		Name:         metrics.PipelineLogs,
		Interval:     cfg.BatchInterval,
		MaxBatchSize: cfg.MaxBatchSize,
		Logger:       logger,
		OnError:      a.sendFailed,
	})
	a.alerts = batch.New(client, transport.AlertsPayload(cfg.Token), batch.Options{
		Name:         metrics.PipelineAlerts,
		Interval:     cfg.BatchInterval,
		MaxBatchSize: cfg.MaxBatchSize,
		Logger:       logger,
		OnError:      a.sendFailed,
	})
	a.metrics = collector.New(collector.NewSender(client, cfg.Token, logger, a.sendFailed), collector.Options{
		Interval:        cfg.MetricsInterval,
		ProcessInterval: cfg.MetricsProcessInterval,
		Logger:          logger,
	})
	return a, nil
}

// Config returns the effective configuration, defaults applied.
func (a *Agent) Config() config.Config { return a.cfg }

// Start launches every pipeline and, when configured, autocapture.
// Calling Start more than once has no effect.
func (a *Agent) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}
	a.started = true

	a.logs.Start()
	a.alerts.Start()
	a.metrics.Start()

	if err := a.capture.Install(func(level event.Level, body string) {
		a.emitLog(context.Background(), level, body, nil)
	}); err != nil {
		a.logger.Warn("autocapture unavailable", "error", err)
	}
}

// Shutdown stops autocapture, then drains every pipeline concurrently.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	started := a.started
	a.started = false
	a.mu.Unlock()
	if !started {
		return nil
	}

	if err := a.capture.Uninstall(); err != nil {
		a.logger.Warn("autocapture uninstall failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.logs.Shutdown(ctx) })
	g.Go(func() error { return a.alerts.Shutdown(ctx) })
	g.Go(func() error { return a.metrics.Shutdown(ctx) })
	return g.Wait()
}

// SetGlobalAttributes replaces the attributes attached to every event after
// the service and ambient ones.
func (a *Agent) SetGlobalAttributes(attrs map[string]string) {
	a.global.Set(attrs)
}

// LogInfo queues a log at INFO level.
func (a *Agent) LogInfo(ctx context.Context, message string, attrs map[string]string) {
	a.emitLog(ctx, event.LevelInfo, message, attrs)
}

// LogDebug queues a log at DEBUG level.
func (a *Agent) LogDebug(ctx context.Context, message string, attrs map[string]string) {
	a.emitLog(ctx, event.LevelDebug, message, attrs)
}

// LogWarn queues a log at WARNING level.
func (a *Agent) LogWarn(ctx context.Context, message string, attrs map[string]string) {
	a.emitLog(ctx, event.LevelWarn, message, attrs)
}

// LogError queues a log at ERROR level.
func (a *Agent) LogError(ctx context.Context, message string, attrs map[string]string) {
	a.emitLog(ctx, event.LevelError, message, attrs)
}

// LogTrace queues a log at TRACE level.
func (a *Agent) LogTrace(ctx context.Context, message string, attrs map[string]string) {
	a.emitLog(ctx, event.LevelTrace, message, attrs)
}

// CreateAlert queues an alert. The collector de-duplicates alerts by title.
func (a *Agent) CreateAlert(ctx context.Context, title string, attrs map[string]string) {
	if err := event.ValidateTitle(title); err != nil {
		a.drop(metrics.PipelineAlerts, err)
		return
	}
	alert := event.NewAlert(title, a.filter(attrs))
	a.attrs.Update(ctx, alert.Attributes)

	if a.cfg.Passthrough {
		fmt.Fprintln(a.capture.Passthrough(event.LevelError), alert.Passthrough())
	}
	if a.cfg.Noop {
		return
	}
	a.alerts.Add(alert)
}

// MetricCounter adds value to the named counter for the current bucket.
func (a *Agent) MetricCounter(name string, value float64, tags map[string]string) {
	a.emitMetric(event.KindCounter, name, value, tags)
}

// MetricGauge sets the named gauge. The last value in a bucket wins.
func (a *Agent) MetricGauge(name string, value float64, tags map[string]string) {
	a.emitMetric(event.KindGauge, name, value, tags)
}

// MetricHistogram records one observation for the named histogram.
func (a *Agent) MetricHistogram(name string, value float64, tags map[string]string) {
	a.emitMetric(event.KindHistogram, name, value, tags)
}

func (a *Agent) emitLog(ctx context.Context, level event.Level, body string, attrs map[string]string) {
	if err := event.ValidateBody(body); err != nil {
		a.drop(metrics.PipelineLogs, err)
		return
	}
	log := event.NewLog(level, body, a.filter(attrs))
	a.attrs.Update(ctx, log.Attributes)

	if a.cfg.Passthrough {
		fmt.Fprintln(a.capture.Passthrough(level), log.Passthrough())
	}
	if a.cfg.Noop {
		return
	}
	a.logs.Add(log)
}

func (a *Agent) emitMetric(kind event.Kind, name string, value float64, tags map[string]string) {
	if err := event.ValidateMetric(name, value); err != nil {
		a.drop(metrics.PipelineMetrics, err)
		return
	}
	if a.cfg.Noop {
		return
	}
	m := event.NewMetric(kind, name, value, a.filter(tags))
	switch kind {
	case event.KindCounter:
		a.metrics.AddCounter(m)
	case event.KindGauge:
		a.metrics.AddGauge(m)
	case event.KindHistogram:
		a.metrics.AddHistogram(m)
	}
}

func (a *Agent) filter(attrs map[string]string) map[string]string {
	valid, rejected := event.FilterAttributes(attrs)
	if len(rejected) > 0 {
		a.logger.Warn("dropping invalid attributes", "keys", rejected, "error", event.ErrInvalidAttributes)
	}
	return valid
}

func (a *Agent) drop(pipeline string, err error) {
	metrics.EventsDropped.WithLabelValues(pipeline, "invalid").Inc()
	a.logger.Warn("dropping invalid event", "pipeline", pipeline, "error", err)
}

// sendFailed prints the invalid token banner once. Every other failure is
// already logged by the batcher.
func (a *Agent) sendFailed(err error) {
	if !isInvalidToken(err) {
		return
	}
	a.tokenWarning.Do(func() {
		fmt.Fprint(a.diag, messages.NewPrinter(a.diag).Error(messages.InvalidToken))
	})
}
