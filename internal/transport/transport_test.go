package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vigilant-run/vigilant-go/internal/event"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		insecure bool
		want     string
	}{
		{"ingress.vigilant.run", false, "https://ingress.vigilant.run/api/message"},
		{"localhost:8080", true, "http://localhost:8080/api/message"},
		{" localhost:8080/ ", true, "http://localhost:8080/api/message"},
	}
	for _, tt := range tests {
		if got := Endpoint(tt.endpoint, tt.insecure); got != tt.want {
			t.Errorf("Endpoint(%q, %v) = %q, want %q", tt.endpoint, tt.insecure, got, tt.want)
		}
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New("  ", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestPostSendsJSON(t *testing.T) {
	var got LogsMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	build := LogsPayload("tok")
	logs := []event.Log{event.NewLog(event.LevelInfo, "hello", map[string]string{"k": "v"})}
	if err := c.Post(context.Background(), build(logs)); err != nil {
		t.Fatalf("post: %v", err)
	}

	if got.Token != "tok" || got.Type != "logs" {
		t.Errorf("envelope = %+v", got)
	}
	if len(got.Logs) != 1 || got.Logs[0].Body != "hello" || got.Logs[0].Attributes["k"] != "v" {
		t.Errorf("logs = %+v", got.Logs)
	}
}

func TestPostClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidToken},
		{"server error", http.StatusInternalServerError, ErrServer},
		{"bad request", http.StatusBadRequest, ErrServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c, err := New(srv.URL, srv.Client())
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			err = c.Post(context.Background(), AlertsPayload("tok")(nil))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPostNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.Post(context.Background(), map[string]string{}); !errors.Is(err, ErrServer) {
		t.Errorf("err = %v, want ErrServer", err)
	}
}
