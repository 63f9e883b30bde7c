package ids

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const tempPrefix = "temp://"

// Generator hands out identifiers. Components that create entities take one
// so tests can supply a predictable sequence.
type Generator interface {
	Next() int64
}

type Counter struct {
	next atomic.Int64
}

// NewCounter returns a generator whose first id is start.
func NewCounter(start int64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

func (c *Counter) Next() int64 {
	return c.next.Add(1) - 1
}

// Default returns a counter seeded with the current unix time in
// milliseconds, which keeps ids from different runs apart.
func Default() *Counter {
	return NewCounter(time.Now().UnixMilli())
}

// Temp returns a temporary id, for entities that have not been saved yet.
func Temp(g Generator) string {
	return tempPrefix + strconv.FormatInt(g.Next(), 10)
}

// IsTemp reports whether v looks like an id produced by Temp from a
// time seeded generator.
func IsTemp(v any) bool {
	s, ok := v.(string)
	if !ok || len(s) != 20 || !strings.HasPrefix(s, tempPrefix) {
		return false
	}
	n, err := strconv.ParseInt(s[len(tempPrefix):], 10, 64)
	return err == nil && n > 1e12
}
