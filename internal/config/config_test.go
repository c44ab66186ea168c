package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigilant.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []error
	}{
		{"valid", Config{Name: "svc", Token: "tk", Endpoint: DefaultEndpoint}, nil},
		{"missing name", Config{Token: "tk", Endpoint: DefaultEndpoint}, []error{ErrNameRequired}},
		{"blank token", Config{Name: "svc", Token: "   ", Endpoint: DefaultEndpoint}, []error{ErrTokenRequired}},
		{"everything missing", Config{}, []error{ErrNameRequired, ErrTokenRequired, ErrEndpointRequired}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			for _, want := range tt.want {
				if !errors.Is(err, want) {
					t.Errorf("error %v does not wrap %v", err, want)
				}
			}
		})
	}
}

func TestBuilderAppliesDefaults(t *testing.T) {
	cfg, err := NewBuilder().
		WithName("svc").
		WithToken("tk").
		WithAttributes(map[string]string{"env": "prod"}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.BatchInterval != DefaultBatchInterval || cfg.MaxBatchSize != DefaultMaxBatchSize {
		t.Errorf("batch defaults = %v/%d", cfg.BatchInterval, cfg.MaxBatchSize)
	}
	if cfg.MetricsInterval != time.Minute || cfg.MetricsProcessInterval != time.Second {
		t.Errorf("metrics defaults = %v/%v", cfg.MetricsInterval, cfg.MetricsProcessInterval)
	}
	if cfg.Attributes["env"] != "prod" {
		t.Errorf("attributes = %v", cfg.Attributes)
	}
}

func TestBuilderRejectsMissingToken(t *testing.T) {
	_, err := NewBuilder().WithName("svc").Build()
	if !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("err = %v, want ErrTokenRequired", err)
	}
}

func TestLoaderReadsYAML(t *testing.T) {
	path := writeConfig(t, `
name: checkout
token: secret
insecure: true
batch_interval: 250ms
attributes:
  region: eu
`)
	l, err := NewLoader(path, quietLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := l.Config()
	if cfg.Name != "checkout" || cfg.Token != "secret" || !cfg.Insecure {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.BatchInterval != 250*time.Millisecond {
		t.Errorf("batch interval = %v", cfg.BatchInterval)
	}
	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("endpoint default not applied: %q", cfg.Endpoint)
	}
	if cfg.Attributes["region"] != "eu" {
		t.Errorf("attributes = %v", cfg.Attributes)
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	path := writeConfig(t, "name: checkout\ntoken: file-token\n")
	t.Setenv(EnvToken, "env-token")
	t.Setenv(EnvNoop, "true")

	l, err := NewLoader(path, quietLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := l.Config()
	if cfg.Token != "env-token" || !cfg.Noop {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoaderRejectsBadBool(t *testing.T) {
	t.Setenv(EnvInsecure, "maybe")
	if _, err := NewLoader("", quietLogger()); err == nil {
		t.Fatal("expected error for unparsable bool")
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), quietLogger()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReloadNotifies(t *testing.T) {
	path := writeConfig(t, "name: a\ntoken: t\n")
	l, err := NewLoader(path, quietLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var seen string
	l.OnChange(func(c *Config) { seen = c.Name })

	if err := os.WriteFile(path, []byte("name: b\ntoken: t\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if seen != "b" || l.Config().Name != "b" {
		t.Errorf("reload not applied: seen=%q current=%q", seen, l.Config().Name)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "name: a\ntoken: t\nattributes:\n  v: one\n")
	l, err := NewLoader(path, quietLogger())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	changed := make(chan map[string]string, 16)
	l.OnChange(func(c *Config) { changed <- c.Attributes })

	stop, err := l.Watch()
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("name: a\ntoken: t\nattributes:\n  v: two\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case attrs := <-changed:
			if attrs["v"] == "two" {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
