package attributes

import (
	"bytes"
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func set(key, value string) Appender {
	return AppenderFunc(func(_ context.Context, attrs map[string]string) {
		attrs[key] = value
	})
}

func TestLaterAppenderWins(t *testing.T) {
	p := NewProvider(set("k", "a"), nil, set("k", "b"))
	attrs := map[string]string{}
	p.Update(context.Background(), attrs)

	if attrs["k"] != "b" {
		t.Errorf("k = %q, want b", attrs["k"])
	}
}

func TestStandardChain(t *testing.T) {
	storage := ContextStorage{}
	global := NewGlobal(map[string]string{"env": "prod"})
	p := NewProvider(ServiceName("svc"), Stored(storage), global)

	ctx := storage.With(context.Background(), map[string]string{"request": "r1", "env": "dev"})
	attrs := map[string]string{"user": "bob"}
	p.Update(ctx, attrs)

	want := map[string]string{
		"user":         "bob",
		"service.name": "svc",
		"request":      "r1",
		"env":          "prod",
	}
	if !reflect.DeepEqual(attrs, want) {
		t.Errorf("attrs = %v, want %v", attrs, want)
	}

	global.Set(map[string]string{"env": "staging"})
	attrs = map[string]string{}
	p.Update(ctx, attrs)
	if attrs["env"] != "staging" {
		t.Errorf("global swap not visible: env = %q", attrs["env"])
	}
}

func TestContextStorageScoping(t *testing.T) {
	s := ContextStorage{}
	root := context.Background()

	var inner, nested map[string]string
	s.Run(root, map[string]string{"x": "1"}, func(ctx context.Context) {
		inner = s.Get(ctx)
		s.Run(ctx, map[string]string{"y": "2", "x": "override"}, func(ctx context.Context) {
			nested = s.Get(ctx)
		})
	})

	if !reflect.DeepEqual(inner, map[string]string{"x": "1"}) {
		t.Errorf("inner = %v", inner)
	}
	if !reflect.DeepEqual(nested, map[string]string{"x": "override", "y": "2"}) {
		t.Errorf("nested = %v", nested)
	}
	if got := s.Get(root); len(got) != 0 {
		t.Errorf("attributes leaked outside the chain: %v", got)
	}
}

func TestContextStorageSiblingsIsolated(t *testing.T) {
	s := ContextStorage{}
	root := s.With(context.Background(), map[string]string{"shared": "yes"})

	var wg sync.WaitGroup
	results := make([]map[string]string, 2)
	for i, v := range []string{"a", "b"} {
		wg.Add(1)
		go s.Run(root, map[string]string{"branch": v}, func(ctx context.Context) {
			defer wg.Done()
			results[i] = s.Get(ctx)
		})
	}
	wg.Wait()

	for i, v := range []string{"a", "b"} {
		want := map[string]string{"shared": "yes", "branch": v}
		if !reflect.DeepEqual(results[i], want) {
			t.Errorf("branch %s saw %v, want %v", v, results[i], want)
		}
	}
}

func TestContextStorageWithoutAndClear(t *testing.T) {
	s := ContextStorage{}
	ctx := s.With(context.Background(), map[string]string{"a": "1", "b": "2"})

	without := s.Without(ctx, "a")
	if got := s.Get(without); !reflect.DeepEqual(got, map[string]string{"b": "2"}) {
		t.Errorf("without = %v", got)
	}
	if got := s.Get(ctx); len(got) != 2 {
		t.Errorf("parent mutated: %v", got)
	}
	if got := s.Get(s.Clear(ctx)); len(got) != 0 {
		t.Errorf("clear = %v", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := ContextStorage{}
	ctx := s.With(context.Background(), map[string]string{"a": "1"})
	s.Get(ctx)["a"] = "changed"

	if got := s.Get(ctx)["a"]; got != "1" {
		t.Errorf("stored map mutated through Get: %q", got)
	}
}

func TestNoopStorage(t *testing.T) {
	var buf bytes.Buffer
	s := Detect(false, slog.New(slog.NewTextHandler(&buf, nil)))

	called := false
	s.Run(context.Background(), map[string]string{"x": "1"}, func(ctx context.Context) {
		called = true
		if got := s.Get(ctx); len(got) != 0 {
			t.Errorf("noop storage returned %v", got)
		}
	})
	if !called {
		t.Fatal("callback not invoked")
	}
	s.Get(context.Background())

	if n := strings.Count(buf.String(), "attribute storage is disabled"); n != 1 {
		t.Errorf("warning logged %d times, want 1", n)
	}
}

func TestDetectEnabled(t *testing.T) {
	if _, ok := Detect(true, nil).(ContextStorage); !ok {
		t.Error("expected ContextStorage when enabled")
	}
}
