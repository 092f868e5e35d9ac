package tinyinject

import (
	"sync"
	"sync/atomic"
)

// slot holds one cached instance. Construction under the lock happens at most once
// successfully; a failed construction leaves the slot empty for the next caller.
type slot struct {
	value any
	mu    sync.Mutex
	done  atomic.Bool
}

func (s *slot) load() (any, bool) {
	if !s.done.Load() {
		return nil, false
	}

	return s.value, true
}

func (s *slot) do(build func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done.Load() {
		return s.value, nil
	}

	v, err := build()
	if err != nil {
		return nil, err
	}

	s.value = v
	s.done.Store(true)

	return v, nil
}

// reset drops the cached instance. A slot held by a construction in progress
// is left alone; that construction sees its owner closed and fails.
func (s *slot) reset() {
	if !s.mu.TryLock() {
		return
	}

	s.value = nil
	s.done.Store(false)
	s.mu.Unlock()
}
