// Package api implements a local collector that accepts the SDK's
// /api/message payloads. It backs `vigilant collector` and end-to-end tests.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigilant-run/vigilant-go/internal/collector"
	"github.com/vigilant-run/vigilant-go/internal/event"
	"github.com/vigilant-run/vigilant-go/internal/metrics"
)

const (
	maxBodySize = 10 << 20
	maxStored   = 1000
)

// Message type values.
const (
	TypeLogs    = "logs"
	TypeAlerts  = "alerts"
	TypeMetrics = "metrics"
)

// inbound accepts every payload shape the SDK sends.
type inbound struct {
	Token      string                       `json:"token"`
	Type       string                       `json:"type"`
	Logs       []event.Log                  `json:"logs"`
	Alerts     []event.Alert                `json:"alerts"`
	Counters   []collector.CounterMessage   `json:"metrics_counters"`
	Gauges     []collector.GaugeMessage     `json:"metrics_gauges"`
	Histograms []collector.HistogramMessage `json:"metrics_histograms"`
}

// Received is one accepted message.
type Received struct {
	ID         string                       `json:"id"`
	Type       string                       `json:"type"`
	ReceivedAt time.Time                    `json:"received_at"`
	Logs       []event.Log                  `json:"logs,omitempty"`
	Alerts     []event.Alert                `json:"alerts,omitempty"`
	Counters   []collector.CounterMessage   `json:"metrics_counters,omitempty"`
	Gauges     []collector.GaugeMessage     `json:"metrics_gauges,omitempty"`
	Histograms []collector.HistogramMessage `json:"metrics_histograms,omitempty"`
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	token  string
	logger *slog.Logger
	mux    *http.ServeMux
	root   http.Handler

	mu       sync.Mutex
	received []Received
}

// New creates the collector handler and registers all routes. An empty token
// accepts every message.
func New(token string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		token:  token,
		logger: logger.With("component", "collector_api"),
		mux:    http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /api/message", h.ingestMessage)
	h.mux.HandleFunc("GET /api/messages", h.listMessages)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	h.root = loggingMiddleware(h.logger, h.mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// Received returns the retained messages, oldest first.
func (h *Handler) Received() []Received {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Received, len(h.received))
	copy(out, h.received)
	return out
}

// POST /api/message: accept a log, alert or metrics payload.
func (h *Handler) ingestMessage(w http.ResponseWriter, r *http.Request) {
	var msg inbound
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if h.token != "" && msg.Token != h.token {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	rec := Received{ID: uuid.New().String(), ReceivedAt: time.Now()}
	var count int
	switch {
	case msg.Type == TypeLogs:
		rec.Type, rec.Logs, count = TypeLogs, msg.Logs, len(msg.Logs)
	case msg.Type == TypeAlerts:
		rec.Type, rec.Alerts, count = TypeAlerts, msg.Alerts, len(msg.Alerts)
	case msg.Type == "" && (msg.Counters != nil || msg.Gauges != nil || msg.Histograms != nil):
		rec.Type = TypeMetrics
		rec.Counters, rec.Gauges, rec.Histograms = msg.Counters, msg.Gauges, msg.Histograms
		count = len(msg.Counters) + len(msg.Gauges) + len(msg.Histograms)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown message type %q", msg.Type))
		return
	}

	h.store(rec)
	metrics.MessagesReceived.WithLabelValues(rec.Type).Inc()
	h.logger.Info("message received", "id", rec.ID, "type", rec.Type, "items", count)
	for _, l := range rec.Logs {
		h.logger.Debug("log", "level", l.Level, "body", l.Body, "attributes", l.Attributes)
	}
	for _, a := range rec.Alerts {
		h.logger.Debug("alert", "title", a.Title, "attributes", a.Attributes)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":    rec.ID,
		"type":  rec.Type,
		"count": count,
	})
}

func (h *Handler) store(rec Received) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, rec)
	if over := len(h.received) - maxStored; over > 0 {
		h.received = append([]Received(nil), h.received[over:]...)
	}
}

// GET /api/messages: list retained messages.
func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs := h.Received()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(msgs),
		"messages": msgs,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
