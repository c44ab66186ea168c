package attributes

import (
	"context"
	"log/slog"
	"sync"
)

// Storage propagates an attribute map implicitly through a call chain.
//
// A chain sees its parent's attributes merged with its own, with its own
// winning on collision. Sibling chains never see each other's attributes.
type Storage interface {
	// Run calls fn with a context carrying the current attributes plus attrs.
	Run(ctx context.Context, attrs map[string]string, fn func(context.Context))
	With(ctx context.Context, attrs map[string]string) context.Context
	Without(ctx context.Context, keys ...string) context.Context
	Clear(ctx context.Context) context.Context
	// Get returns a copy of the attributes active in ctx.
	Get(ctx context.Context) map[string]string
}

type ctxKey struct{}

// ContextStorage keeps attributes in context.Context values. Stored maps are
// never mutated, so a derived context can never leak into its parent.
type ContextStorage struct{}

func (ContextStorage) Run(ctx context.Context, attrs map[string]string, fn func(context.Context)) {
	fn(ContextStorage{}.With(ctx, attrs))
}

func (ContextStorage) With(ctx context.Context, attrs map[string]string) context.Context {
	merged := load(ctx)
	for k, v := range attrs {
		merged[k] = v
	}
	return context.WithValue(ctx, ctxKey{}, merged)
}

func (ContextStorage) Without(ctx context.Context, keys ...string) context.Context {
	remaining := load(ctx)
	for _, k := range keys {
		delete(remaining, k)
	}
	return context.WithValue(ctx, ctxKey{}, remaining)
}

func (ContextStorage) Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, map[string]string{})
}

func (ContextStorage) Get(ctx context.Context) map[string]string {
	return load(ctx)
}

// load returns a private copy of the map stored in ctx.
func load(ctx context.Context) map[string]string {
	if ctx == nil {
		return map[string]string{}
	}
	cur, _ := ctx.Value(ctxKey{}).(map[string]string)
	out := make(map[string]string, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return out
}

// NoopStorage propagates nothing. Run still invokes its callback and Get
// always returns an empty map. The first use logs a warning.
type NoopStorage struct {
	logger *slog.Logger
	once   sync.Once
}

// NewNoopStorage returns a NoopStorage warning through logger.
func NewNoopStorage(logger *slog.Logger) *NoopStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopStorage{logger: logger}
}

func (s *NoopStorage) warn() {
	s.once.Do(func() {
		s.logger.Warn("attribute storage is disabled, ambient attributes will not be propagated")
	})
}

func (s *NoopStorage) Run(ctx context.Context, _ map[string]string, fn func(context.Context)) {
	s.warn()
	fn(ctx)
}

func (s *NoopStorage) With(ctx context.Context, _ map[string]string) context.Context {
	s.warn()
	return ctx
}

func (s *NoopStorage) Without(ctx context.Context, _ ...string) context.Context {
	s.warn()
	return ctx
}

func (s *NoopStorage) Clear(ctx context.Context) context.Context {
	s.warn()
	return ctx
}

func (s *NoopStorage) Get(context.Context) map[string]string {
	s.warn()
	return map[string]string{}
}

// Detect picks the storage variant once, at agent construction.
func Detect(enabled bool, logger *slog.Logger) Storage {
	if !enabled {
		return NewNoopStorage(logger)
	}
	return ContextStorage{}
}
