// Package entities keeps an ordered list of records together with an index
// by id.
package entities

import (
	"github.com/delaneyj/datastore/pkg/ids"
)

// IDKey is the field a Record keeps its id under.
const IDKey = "id"

type Record map[string]any

func (r Record) ID() any {
	return r[IDKey]
}

// Array is not safe for concurrent use.
type Array struct {
	gen  ids.Generator
	data []Record
	pool map[any]Record
}

// New indexes raw by id. A nil gen uses ids.Default for records added
// without an id.
func New(raw []Record, gen ids.Generator) *Array {
	if gen == nil {
		gen = ids.Default()
	}
	a := &Array{
		gen:  gen,
		data: raw,
		pool: make(map[any]Record, len(raw)),
	}
	for _, r := range raw {
		a.pool[r.ID()] = r
	}
	return a
}

// Add appends a copy of raw, giving it an id when it has none, and returns
// the stored record.
func (a *Array) Add(raw Record) Record {
	r := make(Record, len(raw)+1)
	for k, v := range raw {
		r[k] = v
	}
	if r.ID() == nil {
		r[IDKey] = a.gen.Next()
	}
	a.data = append(a.data, r)
	a.pool[r.ID()] = r
	return r
}

// Update replaces the record with a copy that has patch merged over it.
// It reports false when no record has id.
func (a *Array) Update(id any, patch Record) bool {
	i := a.indexOf(id)
	if i < 0 {
		return false
	}

	old := a.data[i]
	r := make(Record, len(old)+len(patch))
	for k, v := range old {
		r[k] = v
	}
	for k, v := range patch {
		r[k] = v
	}
	a.data[i] = r
	if r.ID() != id {
		delete(a.pool, id)
	}
	a.pool[r.ID()] = r
	return true
}

func (a *Array) Remove(id any) {
	a.Filter(func(r Record) bool {
		return r.ID() != id
	})
}

// Filter keeps the records keep returns true for.
func (a *Array) Filter(keep func(Record) bool) {
	kept := make([]Record, 0, len(a.data))
	for _, r := range a.data {
		if keep(r) {
			kept = append(kept, r)
			continue
		}
		delete(a.pool, r.ID())
	}
	a.data = kept
}

func (a *Array) ByID(id any) Record {
	return a.pool[id]
}

func (a *Array) Each(fn func(r Record, index int)) {
	for i, r := range a.data {
		fn(r, i)
	}
}

func (a *Array) Len() int {
	return len(a.data)
}

// Records returns the records in order. The slice is a copy, the records
// are not.
func (a *Array) Records() []Record {
	return append([]Record(nil), a.data...)
}

func Map[D any](a *Array, fn func(r Record, index int) D) []D {
	out := make([]D, len(a.data))
	for i, r := range a.data {
		out[i] = fn(r, i)
	}
	return out
}

func (a *Array) indexOf(id any) int {
	for i, r := range a.data {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
