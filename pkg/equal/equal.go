package equal

import (
	"reflect"
	"time"

	"github.com/mohae/deepcopy"
)

// Same reports whether a and b hold the same data. Maps and slices of any are
// compared element by element, times by instant, everything else by value.
func Same(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return a == b
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := len(av) - 1; i >= 0; i-- {
			if !Same(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range bv {
			if !Same(av[k], v) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Identical reports whether a and b are the same reference. Maps, slices,
// pointers, channels and funcs are compared by address, comparable values
// with ==. Slices without a backing array have no address to compare and
// are never identical.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	switch av.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return av.Pointer() == bv.Pointer()
	case reflect.Slice:
		if av.Cap() == 0 || bv.Cap() == 0 {
			return false
		}
		return av.Pointer() == bv.Pointer() && av.Len() == bv.Len()
	}
	if !av.Comparable() || !bv.Comparable() {
		return false
	}
	return a == b
}

// DeepCopy returns a copy of v sharing no maps or slices with it.
func DeepCopy[T any](v T) T {
	c, ok := deepcopy.Copy(v).(T)
	if !ok {
		return v
	}
	return c
}
