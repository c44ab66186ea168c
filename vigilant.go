// Package vigilant is the client SDK for shipping logs, alerts and metrics to
// a Vigilant collector.
//
// Most programs call Init once at startup and defer Shutdown:
//
//	if _, err := vigilant.Init(cfg); err != nil {
//		log.Fatal(err)
//	}
//	defer vigilant.Shutdown(context.Background())
//
//	vigilant.LogInfo(ctx, "user signed in", map[string]string{"user": id})
//
// Logs and alerts are batched and posted in bulk. Metrics are aggregated
// into one-minute buckets before they are sent.
package vigilant

import (
	"errors"
	"fmt"
	"io"

	"github.com/vigilant-run/vigilant-go/internal/config"
	"github.com/vigilant-run/vigilant-go/internal/event"
	"github.com/vigilant-run/vigilant-go/internal/messages"
	"github.com/vigilant-run/vigilant-go/internal/transport"
)

var (
	// ErrNotInitialized is returned by package-level functions before Init.
	ErrNotInitialized = errors.New("vigilant: not initialized")
	// ErrAlreadyInitialized is returned by a second Init without Shutdown.
	ErrAlreadyInitialized = errors.New("vigilant: already initialized")
)

// Configuration errors, re-exported for errors.Is checks.
var (
	ErrNameRequired     = config.ErrNameRequired
	ErrTokenRequired    = config.ErrTokenRequired
	ErrEndpointRequired = config.ErrEndpointRequired
)

// Input errors. Events failing validation are dropped and logged with one of
// these.
var (
	ErrInvalidBody        = event.ErrInvalidBody
	ErrInvalidTitle       = event.ErrInvalidTitle
	ErrInvalidMetricName  = event.ErrInvalidMetricName
	ErrInvalidMetricValue = event.ErrInvalidMetricValue
	ErrInvalidAttributes  = event.ErrInvalidAttributes
)

func isInvalidToken(err error) bool {
	return errors.Is(err, transport.ErrInvalidToken)
}

// PrintUsage writes a banner explaining err and showing correct usage. It
// reports whether err was recognised.
func PrintUsage(w io.Writer, err error) bool {
	var m messages.Message
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotInitialized):
		m = messages.NotInitialized
	case errors.Is(err, ErrTokenRequired):
		m = messages.TokenRequired
	case errors.Is(err, ErrNameRequired):
		m = messages.NameRequired
	case errors.Is(err, ErrEndpointRequired):
		m = messages.ConfigInvalid
	case isInvalidToken(err):
		m = messages.InvalidToken
	case errors.Is(err, transport.ErrServer):
		m = messages.ServerError
	case errors.Is(err, ErrInvalidBody):
		m = messages.InvalidLogMessage
	case errors.Is(err, ErrInvalidTitle):
		m = messages.InvalidAlertTitle
	case errors.Is(err, ErrInvalidMetricName):
		m = messages.InvalidMetricName
	case errors.Is(err, ErrInvalidMetricValue):
		m = messages.InvalidMetricValue
	case errors.Is(err, ErrInvalidAttributes):
		m = messages.InvalidAttributes
	default:
		return false
	}
	fmt.Fprint(w, messages.NewPrinter(w).Error(m))
	return true
}
