// Package tree keeps items in a parent/child hierarchy with an index by id.
// Items hang off a hidden root whose id is RootID. Ids are compared with ==.
package tree

import (
	"errors"
	"fmt"
)

const RootID = 0

var ErrNotFound = errors.New("tree: item not found")

type Item struct {
	ID     any
	Parent any
	Level  int
	// Open marks a branch as expanded for ToArray.
	Open   bool
	Fields map[string]any
	// Data holds the children in order, nil for a leaf.
	Data []*Item
}

// MoveMode says where Move drops an item relative to its target.
type MoveMode string

const (
	Before MoveMode = "before"
	After  MoveMode = "after"
	Child  MoveMode = "child"
)

// Tree is not safe for concurrent use.
type Tree struct {
	pool map[any]*Item
}

func New(items []*Item) *Tree {
	t := &Tree{pool: map[any]*Item{
		RootID: {ID: RootID, Data: []*Item{}},
	}}
	if len(items) > 0 {
		t.Parse(items, RootID)
	}
	return t
}

// Parse adds items below parent. Items without a parent of their own go
// directly under it, the rest are attached to their named parent, which may
// be another item of the same batch.
func (t *Tree) Parse(items []*Item, parent any) {
	for _, it := range items {
		if zeroID(it.Parent) {
			it.Parent = parent
		}
		it.Data = nil
		t.pool[it.ID] = it
	}
	for _, it := range items {
		if p := t.pool[it.Parent]; p != nil {
			p.Data = append(p.Data, it)
		}
	}

	if top := t.pool[parent]; top != nil {
		setLevel(top.Data, top.Level+1)
	}
}

// Add inserts item at index among its parent's children. A negative or out
// of range index appends.
func (t *Tree) Add(item *Item, index int) error {
	if zeroID(item.Parent) {
		item.Parent = RootID
	}
	parent := t.pool[item.Parent]
	if parent == nil {
		return fmt.Errorf("add %v: parent %v: %w", item.ID, item.Parent, ErrNotFound)
	}

	t.pool[item.ID] = item
	item.Level = parent.Level + 1
	parent.Data = insert(parent.Data, index, item)
	return nil
}

// AddAfter inserts item next to the sibling after. A nil after appends to
// the item's own parent.
func (t *Tree) AddAfter(item *Item, after any) error {
	if after == nil {
		return t.Add(item, -1)
	}

	node := t.pool[after]
	if node == nil {
		return fmt.Errorf("add %v after %v: %w", item.ID, after, ErrNotFound)
	}
	parent := t.pool[node.Parent]
	item.Parent = parent.ID
	return t.Add(item, indexOf(parent.Data, node)+1)
}

// Remove drops the item and everything below it.
func (t *Tree) Remove(id any) error {
	it := t.pool[id]
	if it == nil || id == RootID {
		return fmt.Errorf("remove %v: %w", id, ErrNotFound)
	}
	t.drop(it)

	parent := t.pool[it.Parent]
	kept := parent.Data[:0]
	for _, c := range parent.Data {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	parent.Data = kept
	clearBranch(parent)
	return nil
}

func (t *Tree) drop(it *Item) {
	for _, c := range it.Data {
		t.drop(c)
	}
	delete(t.pool, it.ID)
}

// Update replaces the item with a copy carrying fields merged over its own.
// The "open" field sets Open.
func (t *Tree) Update(id any, fields map[string]any) error {
	old := t.pool[id]
	if old == nil || id == RootID {
		return fmt.Errorf("update %v: %w", id, ErrNotFound)
	}

	next := *old
	next.Fields = make(map[string]any, len(old.Fields)+len(fields))
	for k, v := range old.Fields {
		next.Fields[k] = v
	}
	for k, v := range fields {
		if k == "open" {
			next.Open, _ = v.(bool)
			continue
		}
		next.Fields[k] = v
	}

	branch := t.pool[old.Parent]
	branch.Data[indexOf(branch.Data, old)] = &next
	t.pool[id] = &next
	return nil
}

// Move detaches the item and drops it before, after or as the last child of
// target, fixing the levels of the moved branch.
func (t *Tree) Move(id any, mode MoveMode, target any) error {
	now := t.pool[id]
	tobj := t.pool[target]
	if now == nil || tobj == nil || id == RootID {
		return fmt.Errorf("move %v %s %v: %w", id, mode, target, ErrNotFound)
	}

	dropChild := mode == Child
	level := tobj.Level
	newParent := tobj
	if dropChild {
		level++
	} else {
		newParent = t.pool[tobj.Parent]
	}
	if newParent == nil {
		return fmt.Errorf("move %v %s %v: %w", id, mode, target, ErrNotFound)
	}

	parent := t.pool[now.Parent]
	index := indexOf(parent.Data, now)
	parent.Data = append(parent.Data[:index], parent.Data[index+1:]...)

	newIndex := len(newParent.Data)
	if !dropChild {
		newIndex = indexOf(newParent.Data, tobj)
		if mode == After {
			newIndex++
		}
	}
	newParent.Data = insert(newParent.Data, newIndex, now)

	if parent == newParent && index == newIndex {
		return nil
	}

	now.Parent = newParent.ID
	if now.Level != level {
		setLevel([]*Item{now}, level)
	}
	clearBranch(parent)
	return nil
}

// ToArray lists the visible items: top level items and the children of
// open branches, depth first.
func (t *Tree) ToArray() []*Item {
	var out []*Item
	var walk func(line []*Item)
	walk = func(line []*Item) {
		for _, it := range line {
			out = append(out, it)
			if it.Open {
				walk(it.Data)
			}
		}
	}
	walk(t.pool[RootID].Data)
	return out
}

func (t *Tree) ByID(id any) *Item {
	return t.pool[id]
}

// Branch returns the children of id, nil for a leaf or an unknown id.
func (t *Tree) Branch(id any) []*Item {
	it := t.pool[id]
	if it == nil {
		return nil
	}
	return it.Data
}

// Each visits every item except the root, depth first.
func (t *Tree) Each(fn func(it *Item)) {
	t.EachChild(RootID, func(it *Item, _ int) {
		fn(it)
	})
}

// EachChild visits everything below parent depth first, passing each item's
// index among its siblings.
func (t *Tree) EachChild(parent any, fn func(it *Item, index int)) {
	p := t.pool[parent]
	if p == nil {
		return
	}
	for i, c := range p.Data {
		fn(t.pool[c.ID], i)
		t.EachChild(c.ID, fn)
	}
}

// Len counts the items, the root excluded.
func (t *Tree) Len() int {
	return len(t.pool) - 1
}

func insert(data []*Item, index int, it *Item) []*Item {
	if index < 0 || index >= len(data) {
		return append(data, it)
	}
	data = append(data, nil)
	copy(data[index+1:], data[index:])
	data[index] = it
	return data
}

func indexOf(data []*Item, it *Item) int {
	for i, c := range data {
		if c == it {
			return i
		}
	}
	return -1
}

func setLevel(data []*Item, level int) {
	for _, it := range data {
		it.Level = level
		if it.Data != nil {
			setLevel(it.Data, level+1)
		}
	}
}

// clearBranch turns an emptied branch back into a closed leaf.
func clearBranch(it *Item) {
	if it.Data != nil && len(it.Data) == 0 && it.ID != RootID {
		it.Open = false
		it.Data = nil
	}
}

func zeroID(id any) bool {
	return id == nil || id == 0 || id == ""
}
