package store

import (
	"maps"
	"sort"
	"sync"
)

// removed marks a key staged for removal.
type removed struct{}

// Editor stages changes to a Store. Nothing is visible to readers until
// Commit or Apply. An Editor can be reused after each commit and is safe
// for concurrent use.
type Editor struct {
	s *Store

	mu       sync.Mutex
	modified map[string]any
	clear    bool
}

func (e *Editor) put(key string, v any) *Editor {
	e.mu.Lock()
	e.modified[key] = v
	e.mu.Unlock()
	return e
}

func (e *Editor) PutBool(key string, v bool) *Editor     { return e.put(key, v) }
func (e *Editor) PutInt(key string, v int32) *Editor     { return e.put(key, v) }
func (e *Editor) PutLong(key string, v int64) *Editor    { return e.put(key, v) }
func (e *Editor) PutFloat(key string, v float32) *Editor { return e.put(key, v) }
func (e *Editor) PutString(key string, v string) *Editor { return e.put(key, v) }
func (e *Editor) Remove(key string) *Editor              { return e.put(key, removed{}) }

// Clear removes every key. It is applied before any puts staged in the
// same edit, regardless of call order.
func (e *Editor) Clear() *Editor {
	e.mu.Lock()
	e.clear = true
	e.mu.Unlock()
	return e
}

// Commit writes staged changes to memory and blocks until they are durable.
func (e *Editor) Commit() error {
	return e.s.commit(e, true)
}

// Apply writes staged changes to memory and queues the durable write.
// Failures of the queued write are logged by the store.
func (e *Editor) Apply() {
	if err := e.s.commit(e, false); err != nil {
		e.s.logger.Error("applying preferences", "error", err)
	}
}

// discard drops everything staged.
func (e *Editor) discard() {
	e.mu.Lock()
	e.modified = make(map[string]any)
	e.clear = false
	e.mu.Unlock()
}

// commitToMemory moves staged changes into the store's map. It returns ok
// false when the edit changed nothing.
func (e *Editor) commitToMemory() (Mutation, bool, []string, bool) {
	e.mu.Lock()
	modified := e.modified
	doClear := e.clear
	e.modified = make(map[string]any)
	e.clear = false
	e.mu.Unlock()

	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Mutation{Updated: make(map[string]any)}
	cleared := false
	if doClear && len(s.data) > 0 {
		s.data = make(map[string]any)
		cleared = true
		m.Cleared = true
	}

	var keys []string
	for k, v := range modified {
		old, exists := s.data[k]
		if _, rm := v.(removed); rm {
			if !exists {
				continue
			}
			delete(s.data, k)
			m.Removed = append(m.Removed, k)
			keys = append(keys, k)
			continue
		}
		if exists && sameValue(old, v) {
			continue
		}
		s.data[k] = v
		m.Updated[k] = v
		keys = append(keys, k)
	}

	if !cleared && len(keys) == 0 {
		return Mutation{}, false, nil, false
	}
	sort.Strings(keys)
	sort.Strings(m.Removed)
	m.Snapshot = maps.Clone(s.data)
	return m, cleared, keys, true
}
