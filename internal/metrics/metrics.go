package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline label values.
const (
	PipelineLogs          = "logs"
	PipelineAlerts        = "alerts"
	PipelineMetrics       = "metrics"
	PipelineMetricsSender = "metrics_sender"
)

var (
	EventsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigilant_events_enqueued_total",
		Help: "Total number of events accepted into a delivery queue.",
	}, []string{"pipeline"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigilant_events_dropped_total",
		Help: "Total number of events discarded, labelled by pipeline and reason.",
	}, []string{"pipeline", "reason"})

	BatchesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigilant_batches_sent_total",
		Help: "Total number of POSTs attempted, labelled by pipeline and outcome.",
	}, []string{"pipeline", "status"})

	BatchSendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigilant_batch_send_duration_seconds",
		Help:    "Latency of a single batch POST.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"pipeline"})

	QueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vigilant_queue_length",
		Help: "Current number of items waiting in a delivery queue.",
	}, []string{"pipeline"})

	BucketsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigilant_metric_buckets_open",
		Help: "Number of metric aggregation buckets not yet finalized.",
	})

	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigilant_collector_messages_received_total",
		Help: "Messages accepted by the local development collector, labelled by type.",
	}, []string{"type"})
)
