// Package attributes enriches outgoing events with service, ambient and
// global attributes through an ordered chain of appenders.
package attributes

import (
	"context"
	"sync/atomic"
)

// ServiceNameKey is the attribute every event carries with the service name.
const ServiceNameKey = "service.name"

// Appender adds attributes to attrs in place. Appenders run in registration
// order and later ones overwrite earlier ones on key collision.
type Appender interface {
	Append(ctx context.Context, attrs map[string]string)
}

// AppenderFunc adapts a function to Appender.
type AppenderFunc func(ctx context.Context, attrs map[string]string)

func (f AppenderFunc) Append(ctx context.Context, attrs map[string]string) { f(ctx, attrs) }

// Provider runs an ordered chain of appenders.
type Provider struct {
	appenders []Appender
}

// NewProvider returns a Provider running appenders in the given order. Nil
// appenders are skipped.
func NewProvider(appenders ...Appender) *Provider {
	p := &Provider{}
	for _, a := range appenders {
		if a != nil {
			p.appenders = append(p.appenders, a)
		}
	}
	return p
}

// Update enriches attrs in place.
func (p *Provider) Update(ctx context.Context, attrs map[string]string) {
	for _, a := range p.appenders {
		a.Append(ctx, attrs)
	}
}

// ServiceName sets service.name on every event.
func ServiceName(name string) Appender {
	return AppenderFunc(func(_ context.Context, attrs map[string]string) {
		attrs[ServiceNameKey] = name
	})
}

// Stored copies the ambient attributes active in ctx.
func Stored(s Storage) Appender {
	return AppenderFunc(func(ctx context.Context, attrs map[string]string) {
		for k, v := range s.Get(ctx) {
			attrs[k] = v
		}
	})
}

// Global is a static attribute set that can be swapped at runtime, e.g. when
// a watched config file changes.
type Global struct {
	attrs atomic.Pointer[map[string]string]
}

// NewGlobal returns a Global holding a copy of attrs.
func NewGlobal(attrs map[string]string) *Global {
	g := &Global{}
	g.Set(attrs)
	return g
}

// Set replaces the attribute set. attrs is copied.
func (g *Global) Set(attrs map[string]string) {
	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	g.attrs.Store(&cp)
}

// Get returns a copy of the current attribute set.
func (g *Global) Get() map[string]string {
	cur := g.attrs.Load()
	out := make(map[string]string, len(*cur))
	for k, v := range *cur {
		out[k] = v
	}
	return out
}

func (g *Global) Append(_ context.Context, attrs map[string]string) {
	for k, v := range *g.attrs.Load() {
		attrs[k] = v
	}
}
