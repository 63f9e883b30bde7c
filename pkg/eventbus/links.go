package eventbus

import (
	"context"
	"fmt"
	"sync"
)

// ResolveFunc completes an event once the chain before it ran.
type ResolveFunc func(ctx context.Context, ev any) error

type linked struct {
	mu   sync.Mutex
	next Link
}

func (l *linked) SetNext(next Link) Link {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = next
	return next
}

func (l *linked) successor() Link {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// Resolver calls the ResolveFunc an event carries under key. Events that are
// not a map[string]any, or carry nothing under key, pass through.
type Resolver struct {
	linked
	key string
}

func NewResolver(key string) *Resolver {
	return &Resolver{key: key}
}

func (r *Resolver) Exec(ctx context.Context, name string, ev any) (any, error) {
	if m, ok := ev.(map[string]any); ok {
		var fn ResolveFunc
		switch f := m[r.key].(type) {
		case ResolveFunc:
			fn = f
		case func(context.Context, any) error:
			fn = f
		}
		if fn != nil {
			if err := fn(ctx, ev); err != nil {
				return nil, fmt.Errorf("resolve %s: %w", name, err)
			}
		}
	}
	return forward(ctx, r.successor(), name, ev)
}

// DispatchFunc receives every event passing through a Dispatcher.
type DispatchFunc func(name string, ev any)

type Dispatcher struct {
	linked
	dispatch DispatchFunc
}

func NewDispatcher(fn DispatchFunc) *Dispatcher {
	return &Dispatcher{dispatch: fn}
}

func (d *Dispatcher) Exec(ctx context.Context, name string, ev any) (any, error) {
	d.dispatch(name, ev)
	return forward(ctx, d.successor(), name, ev)
}
