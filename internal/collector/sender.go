package collector

import (
	"log/slog"
	"time"

	"github.com/vigilant-run/vigilant-go/internal/batch"
	"github.com/vigilant-run/vigilant-go/internal/metrics"
	"github.com/vigilant-run/vigilant-go/internal/transport"
)

// MetricsMessage is the wire shape of one finalized bucket.
type MetricsMessage struct {
	Token      string             `json:"token"`
	Counters   []CounterMessage   `json:"metrics_counters"`
	Gauges     []GaugeMessage     `json:"metrics_gauges"`
	Histograms []HistogramMessage `json:"metrics_histograms"`
}

// Sender ships each snapshot as its own POST.
type Sender struct {
	*batch.Batcher[Aggregated]
}

// NewSender returns a Sink that posts snapshots through poster. onError, if
// set, sees every failed POST.
func NewSender(poster transport.Poster, token string, logger *slog.Logger, onError func(error)) *Sender {
	build := func(snapshots []Aggregated) any {
		var msg MetricsMessage
		msg.Token = token
		for _, s := range snapshots {
			msg.Counters = append(msg.Counters, s.Counters...)
			msg.Gauges = append(msg.Gauges, s.Gauges...)
			msg.Histograms = append(msg.Histograms, s.Histograms...)
		}
		if msg.Counters == nil {
			msg.Counters = []CounterMessage{}
		}
		if msg.Gauges == nil {
			msg.Gauges = []GaugeMessage{}
		}
		if msg.Histograms == nil {
			msg.Histograms = []HistogramMessage{}
		}
		return msg
	}
	return &Sender{batch.New(poster, build, batch.Options{
		Name:         metrics.PipelineMetricsSender,
		Interval:     time.Second,
		MaxBatchSize: 1,
		Logger:       logger,
		OnError:      onError,
	})}
}

var _ Sink = (*Sender)(nil)
