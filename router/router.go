// Package router re-runs computed blocks when the state keys they read
// change. Blocks are run shallowest first so every block sees its inputs
// settled, and the pass keeps going until nothing is pending.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/datastore/pkg/equal"
	"github.com/delaneyj/datastore/pkg/tick"
	"github.com/delaneyj/datastore/store"
)

// InitEvent is sent to the event hook after Init applied a config.
const InitEvent = "init-state"

var ErrNoSetter = errors.New("router: setter is required")

// Setter writes a partial update and reports the signals it produced.
// *store.Store satisfies it.
type Setter interface {
	SetState(update map[string]any, mode store.Mode) *store.Signals
}

type SetterFunc func(update map[string]any, mode store.Mode) *store.Signals

func (f SetterFunc) SetState(update map[string]any, mode store.Mode) *store.Signals {
	return f(update, mode)
}

// Parser converts a raw config value before it is written to the state.
type Parser func(raw any) (any, error)

// Hook receives the init event. *eventbus.Bus satisfies it.
type Hook interface {
	Exec(ctx context.Context, name string, payload any) (any, error)
}

type Option func(*Router)

func WithEventHook(h Hook) Option {
	return func(r *Router) {
		r.hook = h
	}
}

func WithScheduler(sched tick.Scheduler) Option {
	return func(r *Router) {
		r.scheduler = sched
	}
}

// WithDelay sets how long SetStateAsync collects updates before flushing.
func WithDelay(d time.Duration) Option {
	return func(r *Router) {
		r.delay = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithErrorHandler receives errors from scheduled flushes, which have no
// caller to return them to.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Router) {
		r.onError = fn
	}
}

type batch struct {
	signals *store.Signals
}

// Router is safe to drive from several goroutines and from the default timer
// scheduler: outermost calls run one at a time. Blocks and the subscribers
// they notify run inside that call and must not make another outermost call
// (SetState with a nil pending set, SetStateAsync, Flush or Init).
type Router struct {
	setter   Setter
	blocks   []*Block
	triggers map[string][]*Block
	sources  map[string]mapset.Set[string]
	parsers  map[string]Parser
	prev     map[string]any

	hook      Hook
	scheduler tick.Scheduler
	delay     time.Duration
	logger    *slog.Logger
	metrics   *Metrics
	onError   func(error)

	// run is held by the outermost SetState, SetStateAsync, Init and every
	// flush, so a flush on a timer goroutine never overlaps the caller.
	// Blocks write through the Pending set they were handed and never take it.
	run sync.Mutex

	mu    sync.Mutex
	batch *batch
}

// New indexes blocks by the keys they read and write and fixes their
// depths. The block graph must be acyclic.
func New(setter Setter, blocks []*Block, parsers map[string]Parser, opts ...Option) *Router {
	if setter == nil {
		panic(ErrNoSetter)
	}

	r := &Router{
		setter:    setter,
		blocks:    blocks,
		triggers:  map[string][]*Block{},
		sources:   map[string]mapset.Set[string]{},
		parsers:   parsers,
		prev:      map[string]any{},
		scheduler: tick.Timer{},
		delay:     tick.DefaultDelay,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.onError == nil {
		r.onError = func(err error) {
			r.logger.Error("router: async flush failed", "err", err)
		}
	}

	for i, b := range blocks {
		b.index = i
		for _, k := range b.In {
			r.triggers[k] = append(r.triggers[k], b)
		}
		for _, k := range b.Out {
			src, ok := r.sources[k]
			if !ok {
				src = mapset.NewThreadUnsafeSet[string]()
				r.sources[k] = src
			}
			src.Append(b.In...)
		}
	}

	depths := map[string]int{}
	for _, b := range blocks {
		b.depth = 1
		for _, k := range b.In {
			if d := r.keyDepth(k, depths, map[string]bool{}) + 1; d > b.depth {
				b.depth = d
			}
		}
	}

	return r
}

// keyDepth is 0 for keys no block produces, otherwise one more than the
// deepest key feeding a block that produces it. A key met again on the same
// walk ends the walk.
func (r *Router) keyDepth(key string, memo map[string]int, walking map[string]bool) int {
	if d, ok := memo[key]; ok {
		return d
	}
	src, ok := r.sources[key]
	if !ok || walking[key] {
		return 0
	}

	walking[key] = true
	deepest := 0
	src.Each(func(in string) bool {
		if d := r.keyDepth(in, memo, walking); d > deepest {
			deepest = d
		}
		return false
	})
	delete(walking, key)

	memo[key] = deepest + 1
	return deepest + 1
}

// Blocks describes the registered blocks in registration order.
func (r *Router) Blocks() []BlockInfo {
	out := make([]BlockInfo, len(r.blocks))
	for i, b := range r.blocks {
		out[i] = BlockInfo{
			Index: i,
			Name:  b.Name,
			In:    append([]string(nil), b.In...),
			Out:   append([]string(nil), b.Out...),
			Depth: b.depth,
		}
	}
	return out
}

// SetState writes update and runs every block it affects. Called with a nil
// pending set it runs the whole pass before returning. Blocks call it with
// the set they were handed, which only queues the blocks their output
// affects; the outermost call runs them.
func (r *Router) SetState(update map[string]any, pending *Pending) (*store.Signals, error) {
	if pending != nil {
		signals := r.setter.SetState(update, store.Immediate)
		r.enqueue(signals, pending)
		return signals, nil
	}

	r.run.Lock()
	defer r.run.Unlock()
	return r.setState(update)
}

func (r *Router) setState(update map[string]any) (*store.Signals, error) {
	signals := r.setter.SetState(update, store.Immediate)
	p := &Pending{}
	r.enqueue(signals, p)
	return signals, r.drain(p)
}

func (r *Router) enqueue(signals *store.Signals, p *Pending) {
	signals.Each(func(key string, _ store.Trigger) {
		for _, b := range r.triggers[key] {
			p.add(b)
		}
	})
}

func (r *Router) drain(p *Pending) error {
	if p.Len() == 0 {
		return nil
	}

	start := time.Now()
	runs := 0
	for p.Len() > 0 {
		b := p.pop()
		r.logger.Debug("router: exec block", "block", b.label(), "depth", b.depth, "pending", p.Len())
		if b.Exec == nil {
			continue
		}
		if err := b.Exec(p); err != nil {
			r.metrics.blockFailed()
			return fmt.Errorf("block %s: %w", b.label(), err)
		}
		r.metrics.blockRan()
		runs++
	}
	r.metrics.drained(time.Since(start))
	r.logger.Debug("router: drained", "runs", runs, "took", time.Since(start))
	return nil
}

// SetStateAsync writes update without notifying subscribers and schedules
// one flush for every update made until it runs. The flush runs the affected
// blocks and then delivers the collected triggers.
func (r *Router) SetStateAsync(update map[string]any) *store.Signals {
	r.run.Lock()
	signals := r.setter.SetState(update, store.Silent)
	r.run.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batch != nil {
		r.batch.signals.Merge(signals)
		return signals
	}

	b := &batch{signals: store.NewSignals()}
	b.signals.Merge(signals)
	r.batch = b
	r.logger.Debug("router: batch opened", "keys", signals.Len(), "delay", r.delay)
	r.scheduler.AfterFunc(r.delay, func() {
		if err := r.flush(b); err != nil {
			r.onError(err)
		}
	})
	return signals
}

// Flush runs the open async batch now, if there is one.
func (r *Router) Flush() error {
	r.mu.Lock()
	b := r.batch
	r.mu.Unlock()
	if b == nil {
		return nil
	}
	return r.flush(b)
}

func (r *Router) flush(b *batch) error {
	r.run.Lock()
	defer r.run.Unlock()

	r.mu.Lock()
	if r.batch != b {
		r.mu.Unlock()
		return nil
	}
	r.batch = nil
	r.mu.Unlock()

	r.metrics.flushed()
	r.logger.Debug("router: batch flushed", "keys", b.signals.Len())

	p := &Pending{}
	r.enqueue(b.signals, p)
	if err := r.drain(p); err != nil {
		return fmt.Errorf("async flush: %w", err)
	}
	b.signals.Fire()
	return nil
}

// Init applies the config keys that changed since the last call, running
// each through its parser, then tells the event hook what was applied.
func (r *Router) Init(ctx context.Context, cfg map[string]any) error {
	next, err := r.apply(cfg)
	if err != nil {
		return err
	}

	if r.hook != nil {
		if _, err := r.hook.Exec(ctx, InitEvent, next); err != nil {
			return fmt.Errorf("init: hook: %w", err)
		}
	}
	return nil
}

func (r *Router) apply(cfg map[string]any) (map[string]any, error) {
	r.run.Lock()
	defer r.run.Unlock()

	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := make(map[string]any, len(keys))
	for _, k := range keys {
		v := cfg[k]
		if equal.Identical(r.prev[k], v) {
			continue
		}
		if parse := r.parsers[k]; parse != nil {
			parsed, err := parse(v)
			if err != nil {
				return nil, fmt.Errorf("init: parse %q: %w", k, err)
			}
			v = parsed
		}
		next[k] = v
	}

	for k, v := range cfg {
		r.prev[k] = v
	}

	if _, err := r.setState(next); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return next, nil
}
