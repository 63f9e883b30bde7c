// Package store holds a state tree as a set of reactive cells. SetState diffs
// a partial update against the tree, writes what changed and reports every
// touched path so callers can react to it.
package store

import (
	"time"

	"github.com/delaneyj/datastore/pkg/equal"
	"github.com/delaneyj/datastore/pkg/tick"
)

// Mode controls how SetState delivers changes to subscribers.
type Mode uint8

const (
	// Immediate fires changed cells while the update is applied.
	Immediate Mode = 0
	// Silent leaves delivery to the caller through the returned triggers.
	Silent Mode = 2
)

const rootID = 0

type Option func(*Store)

// WithAsync makes subscribers receive values on the next tick instead of
// inside the call that produced them. The default tick.Timer scheduler runs
// deliveries on timer goroutines, concurrently with later writes; pair it
// with WithScheduler(tick.Loop) or tick.Manual to keep them on one goroutine.
func WithAsync(async bool) Option {
	return func(s *Store) {
		s.async = async
	}
}

func WithScheduler(sched tick.Scheduler) Option {
	return func(s *Store) {
		s.scheduler = sched
	}
}

// WithDelay sets the length of a tick.
func WithDelay(d time.Duration) Option {
	return func(s *Store) {
		s.delay = d
	}
}

// Store is not safe for concurrent use. With an asynchronous store the
// scheduler decides where deliveries run; tick.Loop keeps them on one
// goroutine.
type Store struct {
	async     bool
	scheduler tick.Scheduler
	delay     time.Duration

	cells []*Cell
	paths map[string]int
}

func New(opts ...Option) *Store {
	s := &Store{
		scheduler: tick.Timer{},
		delay:     tick.DefaultDelay,
		paths:     map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}

	root := &Cell{st: s, id: rootID, node: true, value: map[string]any{}}
	s.cells = append(s.cells, root)
	s.paths[""] = rootID
	return s
}

// SetState applies update and returns the signals for every path it touched,
// children before their parents.
func (s *Store) SetState(update map[string]any, mode Mode) *Signals {
	signals := NewSignals()
	s.diff(s.cells[rootID], update, mode, signals)
	return signals
}

// GetState returns the live state tree. It is not a copy.
func (s *Store) GetState() map[string]any {
	return s.cells[rootID].value.(map[string]any)
}

// Snapshot returns a deep copy of the state tree that later updates do not
// touch.
func (s *Store) Snapshot() map[string]any {
	return equal.DeepCopy(s.GetState())
}

// GetReactive returns the root node of the cell tree.
func (s *Store) GetReactive() *Cell {
	return s.cells[rootID]
}

// Cell returns the cell at a dot path such as "panels.0.start", or nil.
func (s *Store) Cell(path string) *Cell {
	id, ok := s.paths[path]
	if !ok {
		return nil
	}
	return s.cells[id]
}

// Len reports how many cells exist, the root included.
func (s *Store) Len() int {
	return len(s.cells)
}

func (s *Store) diff(parent *Cell, update any, mode Mode, signals *Signals) {
	for _, e := range entries(update) {
		if !parent.accepts(e.key) {
			continue
		}

		nv := e.value
		existing := parent.Child(e.key)
		if existing != nil && unchanged(existing.value, nv) {
			continue
		}

		path := joinPath(parent.path, e.key)
		if existing != nil {
			if existing.node {
				s.diff(existing, nv, mode, signals)
			} else {
				v := plain(nv)
				existing.value = v
				parent.put(e.key, v)
			}

			if mode&Silent != 0 {
				signals.Set(path, existing.Trigger)
			} else {
				existing.Trigger()
			}
		} else {
			r, tagged := nv.(Reactive)
			if tagged && canNest(r.value) {
				s.nest(parent, e.key, r.value, r.deep, signals)
			} else {
				v := plain(nv)
				s.leaf(parent, e.key, v)
				parent.put(e.key, v)
			}
		}
		signals.mark(path)
	}
}

// nest creates a node for container and a cell for each of its children.
func (s *Store) nest(parent *Cell, key string, container any, deep bool, signals *Signals) *Cell {
	node := s.add(parent, key, container)
	node.node = true
	parent.put(key, container)

	for _, e := range entries(container) {
		path := joinPath(node.path, e.key)
		r, tagged := e.value.(Reactive)
		switch {
		case tagged && canNest(r.value):
			s.nest(node, e.key, r.value, deep || r.deep, signals)
		case deep && canNest(e.value):
			s.nest(node, e.key, e.value, true, signals)
		default:
			v := plain(e.value)
			s.leaf(node, e.key, v)
			node.put(e.key, v)
		}
		signals.mark(path)
	}
	return node
}

func (s *Store) leaf(parent *Cell, key string, v any) *Cell {
	return s.add(parent, key, v)
}

func (s *Store) add(parent *Cell, key string, v any) *Cell {
	c := &Cell{
		st:     s,
		id:     len(s.cells),
		parent: parent.id,
		name:   key,
		path:   joinPath(parent.path, key),
		value:  v,
	}
	s.cells = append(s.cells, c)
	s.paths[c.path] = c.id
	parent.addChild(c)
	return c
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
