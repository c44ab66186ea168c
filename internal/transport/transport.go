// Package transport posts JSON payloads to the collector's message endpoint
// and classifies failures by HTTP status.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vigilant-run/vigilant-go/internal/event"
)

const (
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4096
	messagePath      = "/api/message"
)

// ErrInvalidToken indicates the collector rejected the token (HTTP 401).
var ErrInvalidToken = errors.New("vigilant: invalid token")

// ErrServer covers every other non-2xx response and network failure.
var ErrServer = errors.New("vigilant: server error")

// Poster sends one JSON payload. Batchers depend on this rather than *Client.
type Poster interface {
	Post(ctx context.Context, payload any) error
}

// Client posts payloads to a single collector URL.
type Client struct {
	url    string
	client *http.Client
}

// Endpoint builds the message URL for an endpoint host.
func Endpoint(endpoint string, insecure bool) string {
	scheme := "https://"
	if insecure {
		scheme = "http://"
	}
	return scheme + strings.TrimRight(strings.TrimSpace(endpoint), "/") + messagePath
}

// New creates a Client for url. A nil client gets a default with a 5s timeout.
func New(url string, client *http.Client) (*Client, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, errors.New("vigilant: collector url required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	} else if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	return &Client{url: trimmed, client: client}, nil
}

// URL returns the collector URL the client posts to.
func (c *Client) URL() string { return c.url }

// Post marshals payload and sends it. Non-2xx responses are classified into
// ErrInvalidToken or ErrServer.
func (c *Client) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorForStatus(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func errorForStatus(resp *http.Response) error {
	buf, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	summary := strings.TrimSpace(string(buf))
	if summary == "" {
		summary = resp.Status
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrInvalidToken, summary)
	}
	return fmt.Errorf("%w: %d %s", ErrServer, resp.StatusCode, summary)
}

// LogsMessage is the wire shape of a log batch.
type LogsMessage struct {
	Token string      `json:"token"`
	Type  string      `json:"type"`
	Logs  []event.Log `json:"logs"`
}

// AlertsMessage is the wire shape of an alert batch.
type AlertsMessage struct {
	Token  string        `json:"token"`
	Type   string        `json:"type"`
	Alerts []event.Alert `json:"alerts"`
}

// LogsPayload returns a builder for log batches signed with token.
func LogsPayload(token string) func([]event.Log) any {
	return func(logs []event.Log) any {
		return LogsMessage{Token: token, Type: "logs", Logs: logs}
	}
}

// AlertsPayload returns a builder for alert batches signed with token.
func AlertsPayload(token string) func([]event.Alert) any {
	return func(alerts []event.Alert) any {
		return AlertsMessage{Token: token, Type: "alerts", Alerts: alerts}
	}
}
