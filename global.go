package vigilant

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/vigilant-run/vigilant-go/internal/attributes"
	"github.com/vigilant-run/vigilant-go/internal/config"
)

// signalShutdownTimeout bounds the drain triggered by SIGINT or SIGTERM.
const signalShutdownTimeout = 10 * time.Second

type instance struct {
	agent   *Agent
	signals chan os.Signal
	ready   chan struct{}
	done    chan struct{}
	once    sync.Once
	err     error
}

var current atomic.Pointer[instance]

// Init builds and starts the process-wide agent, and arranges for SIGINT and
// SIGTERM to drain it before the process exits. Go has no exit hook, so
// callers should also defer Shutdown.
func Init(cfg config.Config, opts ...Option) (*Agent, error) {
	a, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	inst := &instance{
		agent:   a,
		signals: make(chan os.Signal, 1),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	if !current.CompareAndSwap(nil, inst) {
		return nil, ErrAlreadyInitialized
	}

	// Published but not yet running: teardown waits on ready.
	a.Start()
	signal.Notify(inst.signals, os.Interrupt, syscall.SIGTERM)
	go inst.watch()
	close(inst.ready)
	return a, nil
}

// Shutdown drains and stops the process-wide agent. Concurrent callers all
// wait for the same teardown.
func Shutdown(ctx context.Context) error {
	inst := current.Load()
	if inst == nil {
		return ErrNotInitialized
	}
	return inst.teardown(ctx)
}

// Default returns the process-wide agent, or ErrNotInitialized.
func Default() (*Agent, error) {
	inst := current.Load()
	if inst == nil {
		return nil, ErrNotInitialized
	}
	return inst.agent, nil
}

func (i *instance) watch() {
	select {
	case sig := <-i.signals:
		ctx, cancel := context.WithTimeout(context.Background(), signalShutdownTimeout)
		if err := i.teardown(ctx); err != nil {
			i.agent.logger.Warn("shutdown on signal incomplete", "signal", sig, "error", err)
		}
		cancel()
		// Handlers are gone, so the re-raised signal gets its default action.
		if p, err := os.FindProcess(os.Getpid()); err == nil {
			_ = p.Signal(sig)
		}
	case <-i.done:
	}
}

func (i *instance) teardown(ctx context.Context) error {
	select {
	case <-i.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	i.once.Do(func() {
		signal.Stop(i.signals)
		i.err = i.agent.Shutdown(ctx)
		current.CompareAndSwap(i, nil)
		close(i.done)
	})
	return i.err
}

// LogInfo queues an INFO log on the process-wide agent.
func LogInfo(ctx context.Context, message string, attrs map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.LogInfo(ctx, message, attrs)
	return nil
}

// LogDebug queues a DEBUG log on the process-wide agent.
func LogDebug(ctx context.Context, message string, attrs map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.LogDebug(ctx, message, attrs)
	return nil
}

// LogWarn queues a WARNING log on the process-wide agent.
func LogWarn(ctx context.Context, message string, attrs map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.LogWarn(ctx, message, attrs)
	return nil
}

// LogError queues an ERROR log on the process-wide agent.
func LogError(ctx context.Context, message string, attrs map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.LogError(ctx, message, attrs)
	return nil
}

// LogTrace queues a TRACE log on the process-wide agent.
func LogTrace(ctx context.Context, message string, attrs map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.LogTrace(ctx, message, attrs)
	return nil
}

// CreateAlert queues an alert on the process-wide agent.
func CreateAlert(ctx context.Context, title string, attrs map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.CreateAlert(ctx, title, attrs)
	return nil
}

// MetricCounter adds to a counter on the process-wide agent.
func MetricCounter(name string, value float64, tags map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.MetricCounter(name, value, tags)
	return nil
}

// MetricGauge sets a gauge on the process-wide agent.
func MetricGauge(name string, value float64, tags map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.MetricGauge(name, value, tags)
	return nil
}

// MetricHistogram records a histogram observation on the process-wide agent.
func MetricHistogram(name string, value float64, tags map[string]string) error {
	a, err := Default()
	if err != nil {
		return err
	}
	a.MetricHistogram(name, value, tags)
	return nil
}

// storage returns the process-wide agent's attribute storage. Before Init
// attributes still propagate through contexts.
func storage() attributes.Storage {
	if inst := current.Load(); inst != nil {
		return inst.agent.storage
	}
	return attributes.ContextStorage{}
}

// WithAttributes runs fn with attrs added to the ambient attributes of ctx.
// Every event emitted with the context passed to fn, or a context derived
// from it, carries them.
func WithAttributes(ctx context.Context, attrs map[string]string, fn func(context.Context)) {
	storage().Run(ctx, attrs, fn)
}

// AddAttributes returns a context carrying attrs on top of the ambient
// attributes of ctx.
func AddAttributes(ctx context.Context, attrs map[string]string) context.Context {
	return storage().With(ctx, attrs)
}

// RemoveAttributes returns a context without the given ambient keys.
func RemoveAttributes(ctx context.Context, keys ...string) context.Context {
	return storage().Without(ctx, keys...)
}

// ClearAttributes returns a context with no ambient attributes.
func ClearAttributes(ctx context.Context) context.Context {
	return storage().Clear(ctx)
}

// GetAttributes returns a copy of the ambient attributes of ctx.
func GetAttributes(ctx context.Context) map[string]string {
	return storage().Get(ctx)
}
