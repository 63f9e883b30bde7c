package store

import (
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Reactive marks a map[string]any or []any whose children should each get
// their own cell instead of the whole value being one opaque leaf. Markers are
// only honoured the first time a path is written.
type Reactive struct {
	value any
	deep  bool
}

// Nested marks the direct children of v as reactive.
func Nested(v any) Reactive {
	return Reactive{value: v}
}

// DeepNested marks v and every map or slice nested inside it as reactive.
func DeepNested(v any) Reactive {
	return Reactive{value: v, deep: true}
}

func (r Reactive) Value() any {
	return r.value
}

// Indexed is a partial update for an array: only the listed indices are
// visited, the rest are left alone.
type Indexed map[int]any

type entry struct {
	key   string
	value any
}

// entries lists the children of an update value in visiting order.
func entries(v any) []entry {
	switch v := v.(type) {
	case Reactive:
		return entries(v.value)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, len(keys))
		for i, k := range keys {
			out[i] = entry{k, v[k]}
		}
		return out
	case []any:
		out := make([]entry, len(v))
		for i, x := range v {
			out[i] = entry{strconv.Itoa(i), x}
		}
		return out
	case Indexed:
		idx := make([]int, 0, len(v))
		for i := range v {
			if i >= 0 {
				idx = append(idx, i)
			}
		}
		sort.Ints(idx)
		out := make([]entry, len(idx))
		for n, i := range idx {
			out[n] = entry{strconv.Itoa(i), v[i]}
		}
		return out
	}
	return nil
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any, Indexed, Reactive:
		return true
	}
	return false
}

func canNest(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// plain strips markers and turns partial arrays into dense ones so the
// state tree only ever holds plain values.
func plain(v any) any {
	switch v := v.(type) {
	case Reactive:
		return plain(v.value)
	case Indexed:
		size := 0
		for i := range v {
			if i+1 > size {
				size = i + 1
			}
		}
		out := make([]any, size)
		for i, x := range v {
			if i >= 0 {
				out[i] = plain(x)
			}
		}
		return out
	}
	return v
}

// unchanged reports whether writing nv over ov can be skipped. Containers
// are always treated as changed.
func unchanged(ov, nv any) bool {
	if isContainer(nv) {
		return false
	}
	if nt, ok := nv.(time.Time); ok {
		ot, ok := ov.(time.Time)
		return ok && ot.Equal(nt)
	}
	if ov == nil || nv == nil {
		return ov == nil && nv == nil
	}
	if !sameComparableType(ov, nv) {
		return false
	}
	return ov == nv
}

// sameComparableType checks the dynamic values, so a struct holding a slice
// in an interface field is not comparable.
func sameComparableType(a, b any) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable()
}
