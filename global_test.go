package vigilant

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/vigilant-run/vigilant-go/internal/api"
	"github.com/vigilant-run/vigilant-go/internal/config"
)

func TestEmitBeforeInit(t *testing.T) {
	ctx := context.Background()
	calls := map[string]error{
		"LogInfo":         LogInfo(ctx, "x", nil),
		"LogDebug":        LogDebug(ctx, "x", nil),
		"LogWarn":         LogWarn(ctx, "x", nil),
		"LogError":        LogError(ctx, "x", nil),
		"LogTrace":        LogTrace(ctx, "x", nil),
		"CreateAlert":     CreateAlert(ctx, "x", nil),
		"MetricCounter":   MetricCounter("x", 1, nil),
		"MetricGauge":     MetricGauge("x", 1, nil),
		"MetricHistogram": MetricHistogram("x", 1, nil),
		"Shutdown":        Shutdown(ctx),
	}
	for name, err := range calls {
		if !errors.Is(err, ErrNotInitialized) {
			t.Errorf("%s before Init: err = %v, want ErrNotInitialized", name, err)
		}
	}
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	_, err := Init(config.Config{Token: "tk"}, WithLogger(quietLogger()))
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("err = %v, want ErrNameRequired", err)
	}
	if _, err := Default(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("failed Init left an agent behind")
	}
}

func TestInitLogShutdown(t *testing.T) {
	h, cfg := newCollector(t)
	if _, err := Init(cfg, WithLogger(quietLogger())); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := Init(cfg, WithLogger(quietLogger())); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init: err = %v, want ErrAlreadyInitialized", err)
	}

	if err := LogInfo(context.Background(), "hello", map[string]string{"user": "bob"}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := Shutdown(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("second Shutdown: err = %v, want ErrNotInitialized", err)
	}

	got := h.Received()
	if len(got) != 1 || got[0].Type != api.TypeLogs {
		t.Fatalf("collector received %+v, want one log batch", got)
	}
	log := got[0].Logs[0]
	if log.Body != "hello" || log.Attributes["user"] != "bob" || log.Attributes["service.name"] != "svc" {
		t.Errorf("log = %+v", log)
	}
}

func TestConcurrentShutdownTearsDownOnce(t *testing.T) {
	h, cfg := newCollector(t)
	if _, err := Init(cfg, WithLogger(quietLogger())); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := LogInfo(context.Background(), "hello", nil); err != nil {
		t.Fatalf("log: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = Shutdown(context.Background())
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrNotInitialized):
			t.Errorf("unexpected shutdown error: %v", err)
		}
	}
	if succeeded == 0 {
		t.Error("no Shutdown call succeeded")
	}
	if n := len(h.Received()); n != 1 {
		t.Errorf("collector received %d messages, want 1", n)
	}
}

func TestShutdownRacingInitLeavesAgentStopped(t *testing.T) {
	_, cfg := newCollector(t)

	result := make(chan error, 1)
	go func() {
		for {
			err := Shutdown(context.Background())
			if !errors.Is(err, ErrNotInitialized) {
				result <- err
				return
			}
			runtime.Gosched()
		}
	}()

	a, err := Init(cfg, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := <-result; err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if started {
		t.Error("agent still running after Shutdown returned")
	}
	if _, err := Default(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Default after Shutdown: err = %v", err)
	}
}

func TestAmbientAPIBeforeInit(t *testing.T) {
	ctx := AddAttributes(context.Background(), map[string]string{"a": "1", "b": "2"})
	ctx = RemoveAttributes(ctx, "a")
	if got := GetAttributes(ctx); len(got) != 1 || got["b"] != "2" {
		t.Errorf("attributes = %v", got)
	}
	if got := GetAttributes(ClearAttributes(ctx)); len(got) != 0 {
		t.Errorf("cleared attributes = %v", got)
	}

	called := false
	WithAttributes(ctx, map[string]string{"c": "3"}, func(inner context.Context) {
		called = true
		if got := GetAttributes(inner); got["b"] != "2" || got["c"] != "3" {
			t.Errorf("inner attributes = %v", got)
		}
	})
	if !called {
		t.Error("callback not invoked")
	}
}

func TestDisabledStorageDegrades(t *testing.T) {
	_, cfg := newCollector(t)
	cfg.DisableAttributeStorage = true
	if _, err := Init(cfg, WithLogger(quietLogger())); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer Shutdown(context.Background())

	called := false
	WithAttributes(context.Background(), map[string]string{"x": "1"}, func(ctx context.Context) {
		called = true
		if got := GetAttributes(ctx); len(got) != 0 {
			t.Errorf("degraded storage returned %v", got)
		}
	})
	if !called {
		t.Error("callback not invoked")
	}
}
