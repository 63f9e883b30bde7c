package store

// Trigger delivers a deferred change to a cell's subscribers.
type Trigger func()

// Signals maps the dot path of every key touched by a SetState call to the
// trigger that still has to run for it, or nil when nothing is owed.
// Keys keep the order in which they were first recorded.
type Signals struct {
	keys     []string
	triggers map[string]Trigger
}

func NewSignals() *Signals {
	return &Signals{triggers: map[string]Trigger{}}
}

// Set records key, replacing any trigger already stored for it.
func (s *Signals) Set(key string, t Trigger) {
	if _, ok := s.triggers[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.triggers[key] = t
}

// mark records key with no trigger unless it is already present.
func (s *Signals) mark(key string) {
	if _, ok := s.triggers[key]; ok {
		return
	}
	s.keys = append(s.keys, key)
	s.triggers[key] = nil
}

func (s *Signals) Get(key string) (t Trigger, ok bool) {
	if s == nil {
		return nil, false
	}
	t, ok = s.triggers[key]
	return t, ok
}

func (s *Signals) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *Signals) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

func (s *Signals) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

func (s *Signals) Each(fn func(key string, t Trigger)) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		fn(k, s.triggers[k])
	}
}

// Merge copies every entry of other into s. The last trigger written for a
// key wins.
func (s *Signals) Merge(other *Signals) {
	other.Each(func(key string, t Trigger) {
		s.Set(key, t)
	})
}

// Fire runs every pending trigger in key order.
func (s *Signals) Fire() {
	s.Each(func(_ string, t Trigger) {
		if t != nil {
			t()
		}
	})
}
