package store_test

import (
	"testing"
	"time"

	"github.com/delaneyj/datastore/pkg/tick"
	"github.com/delaneyj/datastore/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetState(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{
		"test": 1,
		"obj":  map[string]any{"id": 2},
	}, store.Immediate)

	assert.Equal(t, map[string]any{
		"test": 1,
		"obj":  map[string]any{"id": 2},
	}, s.GetState())
}

func TestGetReactive(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"test": 1}, store.Immediate)

	var last []any
	s.GetReactive().Child("test").Subscribe(func(v any) {
		last = append(last, v)
	})
	assert.Equal(t, []any{1}, last)

	s.SetState(map[string]any{"test": 2}, store.Immediate)
	assert.Equal(t, []any{1, 2}, last)

	s.SetState(map[string]any{"other": 1}, store.Immediate)
	assert.Equal(t, []any{1, 2}, last)

	s.SetState(map[string]any{"test": 1}, store.Immediate)
	assert.Equal(t, []any{1, 2, 1}, last)
}

func TestAsyncStore(t *testing.T) {
	clock := tick.NewManual()
	s := store.New(store.WithAsync(true), store.WithScheduler(clock))
	s.SetState(map[string]any{"test": 1}, store.Immediate)

	var last []any
	s.Cell("test").Subscribe(func(v any) {
		last = append(last, v)
	})
	assert.Empty(t, last)

	s.SetState(map[string]any{"test": 2}, store.Immediate)
	assert.Empty(t, last)

	clock.Advance(time.Millisecond)
	assert.Equal(t, []any{1, 2}, last)
}

func TestAsyncTriggersCoalesce(t *testing.T) {
	clock := tick.NewManual()
	s := store.New(store.WithAsync(true), store.WithScheduler(clock))
	s.SetState(map[string]any{"n": 0}, store.Immediate)

	var seen []any
	s.Cell("n").Subscribe(func(v any) {
		seen = append(seen, v)
	})
	clock.Advance(time.Millisecond)
	require.Equal(t, []any{0}, seen)

	s.SetState(map[string]any{"n": 1}, store.Immediate)
	s.SetState(map[string]any{"n": 2}, store.Immediate)
	s.SetState(map[string]any{"n": 3}, store.Immediate)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []any{0, 3}, seen)
}

func TestIgnoresOldValues(t *testing.T) {
	s := store.New()
	day := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetState(map[string]any{
		"a": 1,
		"b": "2",
		"c": day,
		"d": []any{1},
		"e": map[string]any{"x": 1},
	}, store.Immediate)

	ss := s.SetState(map[string]any{
		"a": 1,
		"b": "2",
		"c": time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		"d": []any{1},
		"e": map[string]any{"x": 1},
	}, store.Immediate)
	assert.Equal(t, []string{"d", "e"}, ss.Keys())

	ss = s.SetState(map[string]any{
		"a": "1",
		"b": 2,
		"c": day.AddDate(0, 0, 1),
	}, store.Immediate)
	assert.Equal(t, []string{"a", "b", "c"}, ss.Keys())
}

func TestIdempotentLeaves(t *testing.T) {
	s := store.New()
	day := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	update := map[string]any{"n": 5, "s": "x", "when": day, "none": nil}

	first := s.SetState(update, store.Immediate)
	assert.Equal(t, []string{"n", "none", "s", "when"}, first.Keys())

	second := s.SetState(map[string]any{"n": 5, "s": "x", "when": day.In(time.Local), "none": nil}, store.Immediate)
	assert.Zero(t, second.Len())
}

type box struct {
	v any
}

func TestUncomparableLeaf(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"k": box{v: []int{1}}, "n": box{v: 1}}, store.Immediate)

	fired := 0
	s.Cell("k").Subscribe(func(any) { fired++ })

	var signals *store.Signals
	require.NotPanics(t, func() {
		signals = s.SetState(map[string]any{"k": box{v: []int{1}}, "n": box{v: 1}}, store.Immediate)
	})
	assert.Equal(t, []string{"k"}, signals.Keys())
	assert.Equal(t, 2, fired)
	assert.Equal(t, box{v: []int{1}}, s.GetState()["k"])
}

func TestReactiveObjects(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{
		"a": store.Nested(map[string]any{"x": 1}),
	}, store.Immediate)

	count := 0
	s.GetReactive().Child("a").Child("x").Subscribe(func(any) {
		count++
	})

	assert.Equal(t, 1, s.GetState()["a"].(map[string]any)["x"])
	assert.Equal(t, 1, count)

	ss := s.SetState(map[string]any{"a": map[string]any{"x": 2}}, store.Immediate)
	assert.Equal(t, []string{"a.x", "a"}, ss.Keys())
	assert.Equal(t, 2, s.GetState()["a"].(map[string]any)["x"])
	assert.Equal(t, 2, count)

	ss = s.SetState(map[string]any{"a": map[string]any{}}, store.Immediate)
	assert.Equal(t, []string{"a"}, ss.Keys())
	assert.Equal(t, 2, s.GetState()["a"].(map[string]any)["x"])
	assert.Equal(t, 2, count)

	ss = s.SetState(map[string]any{}, store.Immediate)
	assert.Empty(t, ss.Keys())
	assert.Equal(t, 2, count)

	ss = s.SetState(map[string]any{"a": map[string]any{"x": 3}}, store.Immediate)
	assert.Equal(t, []string{"a.x", "a"}, ss.Keys())
	assert.Equal(t, 3, s.GetState()["a"].(map[string]any)["x"])
	assert.Equal(t, 3, count)
}

func TestReactiveArrays(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"a": store.Nested([]any{1})}, store.Immediate)

	count := 0
	s.Cell("a.0").Subscribe(func(any) {
		count++
	})
	assert.Equal(t, 1, s.GetState()["a"].([]any)[0])
	assert.Equal(t, 1, count)

	ss := s.SetState(map[string]any{"a": []any{2}}, store.Immediate)
	assert.Equal(t, []string{"a.0", "a"}, ss.Keys())
	assert.Equal(t, 2, s.GetState()["a"].([]any)[0])
	assert.Equal(t, 2, count)

	ss = s.SetState(map[string]any{"a": []any{}}, store.Immediate)
	assert.Equal(t, []string{"a"}, ss.Keys())
	assert.Equal(t, 2, s.GetState()["a"].([]any)[0])
	assert.Equal(t, 2, count)

	ss = s.SetState(map[string]any{"a": []any{3}}, store.Immediate)
	assert.Equal(t, []string{"a.0", "a"}, ss.Keys())
	assert.Equal(t, 3, s.GetState()["a"].([]any)[0])
	assert.Equal(t, 3, count)
}

func TestReactiveArraysSkipIndices(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"a": store.Nested([]any{4, 1})}, store.Immediate)

	count := 0
	s.Cell("a.1").Subscribe(func(any) {
		count++
	})
	assert.Equal(t, 1, count)

	ss := s.SetState(map[string]any{"a": store.Indexed{1: 2}}, store.Immediate)
	assert.Equal(t, []string{"a.1", "a"}, ss.Keys())
	assert.Equal(t, []any{4, 2}, s.GetState()["a"])
	assert.Equal(t, 2, count)

	ss = s.SetState(map[string]any{"a": store.Indexed{1: 3}}, store.Immediate)
	assert.Equal(t, []string{"a.1", "a"}, ss.Keys())
	assert.Equal(t, []any{4, 3}, s.GetState()["a"])
	assert.Equal(t, 3, count)
}

func TestReactiveArraysGrow(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"a": store.Nested([]any{1})}, store.Immediate)

	ss := s.SetState(map[string]any{"a": store.Indexed{2: "z"}}, store.Immediate)
	assert.Equal(t, []string{"a.2", "a"}, ss.Keys())
	assert.Equal(t, []any{1, nil, "z"}, s.GetState()["a"])
	assert.Equal(t, s.GetState()["a"], s.Cell("a").Value())
	assert.Equal(t, "z", s.Cell("a.2").Value())
}

func TestReactiveNestedStructure(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{
		"a": store.Nested([]any{
			store.Nested(map[string]any{"x": 1, "y": 4}),
			store.Nested(map[string]any{"x": 2, "y": 4}),
		}),
	}, store.Immediate)

	count := 0
	s.GetReactive().Child("a").Child("1").Child("x").Subscribe(func(any) {
		count++
	})
	assert.Equal(t, 1, count)

	ss := s.SetState(map[string]any{
		"a": store.Indexed{1: map[string]any{"x": 3}},
	}, store.Immediate)
	assert.Equal(t, []string{"a.1.x", "a.1", "a"}, ss.Keys())

	item := s.GetState()["a"].([]any)[1].(map[string]any)
	assert.Equal(t, 3, item["x"])
	assert.Equal(t, 4, item["y"])
	assert.Equal(t, 2, count)
}

func TestDeepNested(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{
		"a": store.DeepNested([]any{
			map[string]any{"x": 1, "y": 4},
			map[string]any{"x": 2, "y": 4},
		}),
	}, store.Immediate)

	count := 0
	s.Cell("a.1.x").Subscribe(func(any) {
		count++
	})
	assert.Equal(t, 1, count)

	ss := s.SetState(map[string]any{
		"a": store.Indexed{1: map[string]any{"x": 3}},
	}, store.Immediate)
	assert.Equal(t, []string{"a.1.x", "a.1", "a"}, ss.Keys())

	item := s.GetState()["a"].([]any)[1].(map[string]any)
	assert.Equal(t, 3, item["x"])
	assert.Equal(t, 4, item["y"])
	assert.Equal(t, 2, count)
}

func TestSiblingUpdateDoesNotNotify(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{
		"cfg": store.Nested(map[string]any{"width": 10, "height": 20}),
	}, store.Immediate)

	var widths []any
	s.Cell("cfg.width").Subscribe(func(v any) {
		widths = append(widths, v)
	})

	s.SetState(map[string]any{"cfg": map[string]any{"height": 30}}, store.Immediate)
	assert.Equal(t, []any{10}, widths)

	s.SetState(map[string]any{"cfg": map[string]any{"width": 11}}, store.Immediate)
	assert.Equal(t, []any{10, 11}, widths)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"x": 1}, store.Immediate)

	count := 0
	un := s.Cell("x").Subscribe(func(any) {
		count++
	})
	assert.Equal(t, 1, count)

	s.SetState(map[string]any{"x": 2}, store.Immediate)
	assert.Equal(t, 2, count)

	s.SetState(map[string]any{"x": 2}, store.Immediate)
	assert.Equal(t, 2, count)

	un()
	s.SetState(map[string]any{"x": 3}, store.Immediate)
	assert.Equal(t, 2, count)
}

func TestEmptyValues(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"x": nil, "y": nil, "z": ""}, store.Immediate)
	assert.Equal(t, map[string]any{"x": nil, "y": nil, "z": ""}, s.GetState())
}

func TestReactiveTree(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{
		"x": 1,
		"y": store.Nested(map[string]any{"z": 2}),
	}, store.Immediate)

	root := s.GetReactive()
	assert.Equal(t, []string{"x", "y"}, root.Keys())
	assert.False(t, root.Child("x").IsNode())
	assert.True(t, root.Child("y").IsNode())
	assert.Equal(t, []string{"z"}, root.Child("y").Keys())
	assert.Empty(t, root.Child("y").Child("z").Keys())
	assert.Equal(t, map[string]any{"x": 1, "y": map[string]any{"z": 2}}, s.GetState())

	s.SetState(map[string]any{"y": map[string]any{"z": 3}}, store.Immediate)
	assert.Equal(t, []string{"x", "y"}, root.Keys())
	assert.Equal(t, []string{"z"}, root.Child("y").Keys())
	assert.Equal(t, map[string]any{"x": 1, "y": map[string]any{"z": 3}}, s.GetState())

	s.SetState(map[string]any{"y": map[string]any{"z": 4, "e": 5}}, store.Immediate)
	assert.Equal(t, []string{"x", "y"}, root.Keys())
	assert.Equal(t, []string{"z", "e"}, root.Child("y").Keys())
	assert.Equal(t, map[string]any{"x": 1, "y": map[string]any{"z": 4, "e": 5}}, s.GetState())

	assert.Equal(t, "y.e", root.Lookup("y.e").Path())
	assert.Same(t, root.Lookup("y.e"), root.Child("y").Lookup("e"))
	assert.Nil(t, root.Child("missing"))
	assert.Nil(t, s.Cell("y.missing"))
}

func TestGetImmediateState(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"test": 1}, store.Immediate)
	assert.Equal(t, 1, s.GetState()["test"])

	s.SetState(map[string]any{"test": 2}, store.Immediate)
	assert.Equal(t, 2, s.GetState()["test"])
}

func TestSilentMode(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{"c": 1}, store.Immediate)

	var values []any
	s.Cell("c").Subscribe(func(v any) {
		values = append(values, v)
	})
	assert.Equal(t, []any{1}, values)

	sig := s.SetState(map[string]any{"c": 1}, store.Silent)
	assert.Zero(t, sig.Len())
	assert.Equal(t, []any{1}, values)

	sig = s.SetState(map[string]any{"c": 2}, store.Silent)
	trigger, ok := sig.Get("c")
	require.True(t, ok)
	require.NotNil(t, trigger)
	assert.Equal(t, map[string]any{"c": 2}, s.GetState())
	assert.Equal(t, []any{1}, values)

	trigger()
	assert.Equal(t, []any{1, 2}, values)

	sig = s.SetState(map[string]any{"c": 3}, store.Silent)
	s.SetState(map[string]any{"c": 4}, store.Silent)
	s.SetState(map[string]any{"c": 5}, store.Silent)
	sig.Fire()
	assert.Equal(t, []any{1, 2, 5}, values)
}

func TestSilentFirstWrite(t *testing.T) {
	s := store.New()
	sig := s.SetState(map[string]any{"a": 1}, store.Silent)
	trigger, ok := sig.Get("a")
	assert.True(t, ok)
	assert.Nil(t, trigger)
}

func TestSnapshot(t *testing.T) {
	s := store.New()
	s.SetState(map[string]any{
		"panels": store.DeepNested([]any{map[string]any{"start": 1}}),
	}, store.Immediate)

	snap := s.Snapshot()
	s.SetState(map[string]any{"panels": store.Indexed{0: map[string]any{"start": 2}}}, store.Immediate)

	assert.Equal(t, map[string]any{"panels": []any{map[string]any{"start": 1}}}, snap)
	assert.Equal(t, 2, s.GetState()["panels"].([]any)[0].(map[string]any)["start"])
}
