package store

import "strconv"

type subscription struct {
	id uint64
	fn func(any)
}

// Cell is one reactive value in the store. Nodes are cells whose value is a
// map[string]any or []any with a child cell per key.
type Cell struct {
	st     *Store
	id     int
	parent int
	name   string
	path   string
	value  any

	subs    []subscription
	lastSub uint64
	queued  bool

	node     bool
	keys     []string
	children map[string]int
}

func (c *Cell) Path() string {
	return c.path
}

func (c *Cell) Value() any {
	return c.value
}

func (c *Cell) IsNode() bool {
	return c.node
}

// Keys returns the child keys of a node in creation order.
func (c *Cell) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// Child returns the cell stored under key, or nil.
func (c *Cell) Child(key string) *Cell {
	id, ok := c.children[key]
	if !ok {
		return nil
	}
	return c.st.cells[id]
}

// Lookup resolves a dot path relative to c.
func (c *Cell) Lookup(path string) *Cell {
	if c.path == "" {
		return c.st.Cell(path)
	}
	return c.st.Cell(c.path + "." + path)
}

// Subscribe registers fn and hands it the current value, right away for a
// synchronous store or on the next tick for an asynchronous one.
func (c *Cell) Subscribe(fn func(any)) (unsubscribe func()) {
	c.lastSub++
	id := c.lastSub
	c.subs = append(c.subs, subscription{id: id, fn: fn})

	if c.st.async {
		v := c.value
		c.st.scheduler.AfterFunc(c.st.delay, func() { fn(v) })
	} else {
		fn(c.value)
	}

	return func() {
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Trigger delivers the current value to every subscriber. On an
// asynchronous store the delivery happens on the next tick, and triggers
// fired before that tick share the one delivery.
func (c *Cell) Trigger() {
	if len(c.subs) == 0 {
		return
	}
	if !c.st.async {
		c.deliver()
		return
	}
	if c.queued {
		return
	}
	c.queued = true
	c.st.scheduler.AfterFunc(c.st.delay, func() {
		c.queued = false
		c.deliver()
	})
}

func (c *Cell) deliver() {
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	v := c.value
	for _, s := range subs {
		s.fn(v)
	}
}

// accepts reports whether the node's container can hold key.
func (c *Cell) accepts(key string) bool {
	switch c.value.(type) {
	case map[string]any:
		return true
	case []any:
		i, err := strconv.Atoi(key)
		return err == nil && i >= 0
	}
	return false
}

// put writes v under key in the node's container. A slice that has to grow
// is written back into the parent so the state tree stays linked.
func (c *Cell) put(key string, v any) {
	switch container := c.value.(type) {
	case map[string]any:
		container[key] = v
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 {
			return
		}
		if i >= len(container) {
			grown := make([]any, i+1)
			copy(grown, container)
			container = grown
			c.value = container
			if c.id != rootID {
				c.st.cells[c.parent].put(c.name, container)
			}
		}
		container[i] = v
	}
}

func (c *Cell) addChild(child *Cell) {
	if c.children == nil {
		c.children = map[string]int{}
	}
	c.children[child.name] = child.id
	c.keys = append(c.keys, child.name)
}
