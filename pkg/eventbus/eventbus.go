// Package eventbus dispatches named events through a chain of links. A Bus
// runs its own handlers in order and then hands the event to the next link.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrStop halts the chain when returned by a handler. Exec then reports a
// nil result and no error.
var ErrStop = errors.New("eventbus: stop")

type Handler func(ctx context.Context, ev any) error

// Link is one step of an event chain.
type Link interface {
	Exec(ctx context.Context, name string, ev any) (any, error)
	SetNext(next Link) Link
}

type handlerConfig struct {
	intercept bool
	tag       any
}

type HandlerOption func(*handlerConfig)

// Intercept runs the handler before the ones already registered.
func Intercept() HandlerOption {
	return func(c *handlerConfig) {
		c.intercept = true
	}
}

// Tag labels the handler so Detach can remove it. Tags must be comparable.
func Tag(tag any) HandlerOption {
	return func(c *handlerConfig) {
		c.tag = tag
	}
}

type entry struct {
	fn  Handler
	tag any
}

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	next     Link
}

func New() *Bus {
	return &Bus{handlers: map[string][]entry{}}
}

func (b *Bus) On(name string, h Handler, opts ...HandlerOption) {
	var cfg handlerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	e := entry{fn: h, tag: cfg.tag}
	if cfg.intercept {
		b.handlers[name] = append([]entry{e}, b.handlers[name]...)
	} else {
		b.handlers[name] = append(b.handlers[name], e)
	}
}

func (b *Bus) Intercept(name string, h Handler, opts ...HandlerOption) {
	b.On(name, h, append(opts, Intercept())...)
}

// Detach removes every handler registered with tag.
func (b *Bus) Detach(tag any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, stack := range b.handlers {
		kept := stack[:0]
		for _, e := range stack {
			if !sameTag(e.tag, tag) {
				kept = append(kept, e)
			}
		}
		b.handlers[name] = kept
	}
}

// sameTag only matches comparable tags. A slice or map tag never matches.
func sameTag(a, b any) bool {
	if a == nil || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}

// Exec runs the handlers for name and then the next link. It returns ev once
// the whole chain ran.
func (b *Bus) Exec(ctx context.Context, name string, ev any) (any, error) {
	b.mu.RLock()
	stack := append([]entry(nil), b.handlers[name]...)
	next := b.next
	b.mu.RUnlock()

	for i, e := range stack {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.fn(ctx, ev); err != nil {
			if errors.Is(err, ErrStop) {
				return nil, nil
			}
			return nil, fmt.Errorf("%s handler %d: %w", name, i, err)
		}
	}

	return forward(ctx, next, name, ev)
}

// SetNext links next after b and returns it, so chains can be built with
// repeated calls.
func (b *Bus) SetNext(next Link) Link {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = next
	return next
}

func forward(ctx context.Context, next Link, name string, ev any) (any, error) {
	if next == nil {
		return ev, nil
	}
	if _, err := next.Exec(ctx, name, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
