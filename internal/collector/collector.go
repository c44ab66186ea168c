// Package collector aggregates raw counter, gauge and histogram events into
// time buckets aligned to wall-clock interval boundaries and hands each
// finalized bucket to a Sink.
//
// Two loops run on one goroutine: a fast processor that drains the raw
// queues into buckets, and a boundary ticker that fires shortly after every
// interval closes and finalizes the bucket that just ended.
package collector

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vigilant-run/vigilant-go/internal/event"
	"github.com/vigilant-run/vigilant-go/internal/metrics"
)

const (
	DefaultInterval        = time.Minute
	DefaultProcessInterval = time.Second
	DefaultMargin          = time.Second
)

// Sink receives finalized snapshots. Sender is the production implementation.
type Sink interface {
	Add(Aggregated)
	Start()
	Shutdown(ctx context.Context) error
}

// Options tunes a Collector. Zero values select the defaults.
type Options struct {
	Interval        time.Duration
	ProcessInterval time.Duration
	// Margin delays the boundary tick past the boundary itself so the
	// processor has drained events recorded just before it.
	Margin time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

type state int

const (
	stateStopped state = iota
	stateRunning
	stateStopping
)

// Collector turns raw metric events into per-bucket snapshots.
type Collector struct {
	sink            Sink
	interval        time.Duration
	processInterval time.Duration
	margin          time.Duration
	logger          *slog.Logger
	now             func() time.Time

	mu         sync.Mutex
	state      state
	stop       chan struct{}
	done       chan struct{}
	counters   []event.Metric
	gauges     []event.Metric
	histograms []event.Metric

	bmu     sync.Mutex
	buckets map[int64]*bucket
	// lastGauges carries every gauge's latest value across buckets.
	lastGauges map[string]*series
	// finalizedBefore is the start (unix ms) of the oldest bucket that has
	// not been finalized yet.
	finalizedBefore int64
}

// New creates a stopped Collector feeding sink.
func New(sink Sink, opts Options) *Collector {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ProcessInterval <= 0 {
		opts.ProcessInterval = DefaultProcessInterval
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	} else if opts.Margin == 0 {
		opts.Margin = DefaultMargin
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		sink:            sink,
		interval:        opts.Interval,
		processInterval: opts.ProcessInterval,
		margin:          opts.Margin,
		logger:          opts.Logger.With("component", "metrics_collector"),
		now:             opts.Now,
		buckets:         make(map[int64]*bucket),
		lastGauges:      make(map[string]*series),
	}
}

// AddCounter queues a counter observation for the next processor pass.
func (c *Collector) AddCounter(m event.Metric) {
	m.Kind = event.KindCounter
	c.enqueue(&c.counters, m)
}

// AddGauge queues a gauge observation for the next processor pass.
func (c *Collector) AddGauge(m event.Metric) {
	m.Kind = event.KindGauge
	c.enqueue(&c.gauges, m)
}

// AddHistogram queues a histogram observation for the next processor pass.
func (c *Collector) AddHistogram(m event.Metric) {
	m.Kind = event.KindHistogram
	c.enqueue(&c.histograms, m)
}

func (c *Collector) enqueue(queue *[]event.Metric, m event.Metric) {
	if m.Time.IsZero() {
		m.Time = c.now()
	}
	c.mu.Lock()
	*queue = append(*queue, m)
	c.mu.Unlock()
	metrics.EventsEnqueued.WithLabelValues(metrics.PipelineMetrics).Inc()
}

// Start arms the boundary timer and the processor, and starts the sink.
// Starting a running collector has no effect.
func (c *Collector) Start() {
	c.mu.Lock()
	if c.state != stateStopped {
		c.mu.Unlock()
		return
	}
	c.state = stateRunning
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	c.sink.Start()
	go c.run(stop, done)
}

// Shutdown stops both loops, drains the raw queues, finalizes every
// outstanding bucket and waits for the sink to deliver them. Shutdown on a
// collector that is not running returns immediately.
func (c *Collector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.state != stateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = stateStopping
	close(c.stop)
	done := c.done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = stateStopped
		c.mu.Unlock()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.processQueues()
	c.finalizeAll()
	return c.sink.Shutdown(ctx)
}

func (c *Collector) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	now := c.now()
	first := c.nextTick(now)
	boundary := time.NewTimer(first.Sub(now))
	defer boundary.Stop()
	processor := time.NewTicker(c.processInterval)
	defer processor.Stop()

	var recurring *time.Ticker
	tick := boundary.C
	for {
		select {
		case <-stop:
			if recurring != nil {
				recurring.Stop()
			}
			return
		case <-processor.C:
			c.processQueues()
		case <-tick:
			if recurring == nil {
				c.processTick(first)
				recurring = time.NewTicker(c.interval)
				tick = recurring.C
				continue
			}
			c.processTick(c.now())
		}
	}
}

// nextTick returns the first boundary after now, pushed back by the margin.
func (c *Collector) nextTick(now time.Time) time.Time {
	start := c.bucketStart(now)
	return time.UnixMilli(start).Add(c.interval + c.margin)
}

func (c *Collector) bucketStart(t time.Time) int64 {
	ms := t.UnixMilli()
	iv := c.interval.Milliseconds()
	mod := ms % iv
	if mod < 0 {
		mod += iv
	}
	return ms - mod
}

// processQueues moves every queued raw event into its bucket.
func (c *Collector) processQueues() {
	c.mu.Lock()
	counters, gauges, histograms := c.counters, c.gauges, c.histograms
	c.counters, c.gauges, c.histograms = nil, nil, nil
	c.mu.Unlock()

	if len(counters)+len(gauges)+len(histograms) == 0 {
		return
	}

	c.bmu.Lock()
	defer c.bmu.Unlock()
	for _, batch := range [][]event.Metric{counters, gauges, histograms} {
		for _, m := range batch {
			c.record(m)
		}
	}
	metrics.BucketsOpen.Set(float64(len(c.buckets)))
}

// record must be called with bmu held.
func (c *Collector) record(m event.Metric) {
	start := c.bucketStart(m.Time)
	if start < c.finalizedBefore {
		metrics.EventsDropped.WithLabelValues(metrics.PipelineMetrics, "late").Inc()
		c.logger.Warn("dropping metric for an already flushed interval",
			"metric", m.Name,
			"kind", m.Kind,
			"bucket", event.FormatBucket(time.UnixMilli(start)),
		)
		return
	}
	b := c.buckets[start]
	if b == nil {
		b = newBucket(time.UnixMilli(start))
		c.buckets[start] = b
	}
	b.record(m)
}

// processTick finalizes every bucket that ended before the interval
// containing t.
func (c *Collector) processTick(t time.Time) {
	c.processQueues()
	c.finalizeBefore(c.bucketStart(t))
}

// finalizeAll flushes every outstanding bucket, including the current one.
func (c *Collector) finalizeAll() {
	iv := c.interval.Milliseconds()
	boundary := c.bucketStart(c.now()) + iv

	c.bmu.Lock()
	for start := range c.buckets {
		if start+iv > boundary {
			boundary = start + iv
		}
	}
	c.bmu.Unlock()

	c.finalizeBefore(boundary)
}

func (c *Collector) finalizeBefore(boundary int64) {
	iv := c.interval.Milliseconds()

	c.bmu.Lock()
	var starts []int64
	for start := range c.buckets {
		if start < boundary {
			starts = append(starts, start)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	// The interval that just closed reports carried gauges even when it
	// saw no events of its own.
	prev := boundary - iv
	if prev >= c.finalizedBefore && len(c.lastGauges) > 0 && c.buckets[prev] == nil {
		starts = append(starts, prev)
	}

	snapshots := make([]Aggregated, 0, len(starts))
	for _, start := range starts {
		if agg := c.finalize(start); !agg.Empty() {
			snapshots = append(snapshots, agg)
		}
	}
	if boundary > c.finalizedBefore {
		c.finalizedBefore = boundary
	}
	metrics.BucketsOpen.Set(float64(len(c.buckets)))
	c.bmu.Unlock()

	for _, agg := range snapshots {
		c.sink.Add(agg)
	}
}

// finalize evicts the bucket at start and renders its snapshot. Must be
// called with bmu held, in chronological order.
func (c *Collector) finalize(start int64) Aggregated {
	ts := event.FormatBucket(time.UnixMilli(start))
	var agg Aggregated

	b := c.buckets[start]
	delete(c.buckets, start)
	if b != nil {
		for _, key := range sortedKeys(b.counters) {
			s := b.counters[key]
			agg.Counters = append(agg.Counters, CounterMessage{
				Timestamp:  ts,
				MetricName: s.name,
				Value:      s.value,
				Tags:       copyTags(s.tags),
			})
		}
		for _, key := range sortedKeys(b.histograms) {
			s := b.histograms[key]
			agg.Histograms = append(agg.Histograms, HistogramMessage{
				Timestamp:  ts,
				MetricName: s.name,
				Values:     append([]float64(nil), s.values...),
				Tags:       copyTags(s.tags),
			})
		}
		for key, s := range b.gauges {
			c.lastGauges[key] = s
		}
	}
	for _, key := range sortedKeys(c.lastGauges) {
		s := c.lastGauges[key]
		agg.Gauges = append(agg.Gauges, GaugeMessage{
			Timestamp:  ts,
			MetricName: s.name,
			Value:      s.value,
			Tags:       copyTags(s.tags),
		})
	}
	return agg
}
