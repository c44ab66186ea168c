// Package batch buffers events in memory and ships them in bulk, either on a
// fixed interval or as soon as the queue reaches its maximum batch size.
//
// Delivery is best effort: a batch that fails to send is dropped, never
// re-queued.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vigilant-run/vigilant-go/internal/metrics"
	"github.com/vigilant-run/vigilant-go/internal/transport"
)

const (
	DefaultInterval     = 100 * time.Millisecond
	DefaultMaxBatchSize = 1000
)

// Options tunes a Batcher. Zero values select the defaults.
type Options struct {
	// Name labels log lines and self metrics, e.g. "logs".
	Name         string
	Interval     time.Duration
	MaxBatchSize int
	Logger       *slog.Logger
	// OnError is called with every send failure after it has been logged.
	OnError func(error)
}

// Batcher is a FIFO queue of T drained by a background loop.
type Batcher[T any] struct {
	poster       transport.Poster
	build        func([]T) any
	name         string
	interval     time.Duration
	maxBatchSize int
	logger       *slog.Logger
	onError      func(error)

	mu      sync.Mutex
	queue   []T
	started bool
	closed  bool

	// sendMu serializes take+send so batches reach the wire in queue order.
	sendMu  sync.Mutex
	flushes sync.WaitGroup

	stop chan struct{}
	done chan struct{}
}

// New creates a Batcher that posts build(batch) through poster.
func New[T any](poster transport.Poster, build func([]T) any, opts Options) *Batcher[T] {
	if opts.Name == "" {
		opts.Name = "events"
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultMaxBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Batcher[T]{
		poster:       poster,
		build:        build,
		name:         opts.Name,
		interval:     opts.Interval,
		maxBatchSize: opts.MaxBatchSize,
		logger:       opts.Logger.With("component", "batcher", "pipeline", opts.Name),
		onError:      opts.OnError,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Add appends item to the queue. Reaching the maximum batch size starts a
// flush immediately instead of waiting for the next tick.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	b.queue = append(b.queue, item)
	n := len(b.queue)
	full := n >= b.maxBatchSize && !b.closed
	if full {
		b.flushes.Add(1)
	}
	b.mu.Unlock()

	metrics.EventsEnqueued.WithLabelValues(b.name).Inc()
	metrics.QueueLength.WithLabelValues(b.name).Set(float64(n))

	if full {
		go func() {
			defer b.flushes.Done()
			b.flush(false)
		}()
	}
}

// Len returns the number of queued items.
func (b *Batcher[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Start launches the flush loop. Calling Start more than once has no effect.
func (b *Batcher[T]) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.run()
}

// Shutdown stops the loop and waits until the queue has been drained by a
// final forced flush. Shutdown on a batcher that was never started returns
// immediately.
func (b *Batcher[T]) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	if !b.closed {
		b.closed = true
		close(b.stop)
	}
	b.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		<-b.done
		b.flushes.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batcher[T]) run() {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		b.flush(false)
		select {
		case <-b.stop:
			b.flush(true)
			b.logger.Debug("batcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// flush sends one batch, or every batch when force is set.
func (b *Batcher[T]) flush(force bool) {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	for {
		batch := b.take()
		if len(batch) == 0 {
			return
		}
		b.send(batch)
		if !force {
			return
		}
	}
}

func (b *Batcher[T]) take() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := min(len(b.queue), b.maxBatchSize)
	if n == 0 {
		return nil
	}
	batch := make([]T, n)
	copy(batch, b.queue[:n])
	var zero T
	for i := range n {
		b.queue[i] = zero
	}
	b.queue = b.queue[n:]
	metrics.QueueLength.WithLabelValues(b.name).Set(float64(len(b.queue)))
	return batch
}

func (b *Batcher[T]) send(batch []T) {
	start := time.Now()
	err := b.poster.Post(context.Background(), b.build(batch))
	metrics.BatchSendDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())
	if err != nil {
		status := "server_error"
		if errors.Is(err, transport.ErrInvalidToken) {
			status = "invalid_token"
		}
		metrics.BatchesSent.WithLabelValues(b.name, status).Inc()
		metrics.EventsDropped.WithLabelValues(b.name, status).Add(float64(len(batch)))
		b.logger.Warn("batch send failed, dropping batch", "error", err, "size", len(batch))
		if b.onError != nil {
			b.onError(err)
		}
		return
	}
	metrics.BatchesSent.WithLabelValues(b.name, "ok").Inc()
}
