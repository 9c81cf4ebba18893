// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"maps"
	"strings"
	"sync"
)

// Constants for different state key prefixes
const (
	// AppPrefix is the prefix for application state keys
	AppPrefix = "app:"

	// UserPrefix is the prefix for user state keys
	UserPrefix = "user:"

	// TempPrefix is the prefix for temporary state keys
	TempPrefix = "temp:"
)

// State maintains the committed value of a state dictionary and the pending
// deltas that haven't been committed yet.
//
// Reads see pending writes first. A nil value in the delta marks a deletion.
type State struct {
	mu sync.RWMutex

	// value is the committed state.
	value map[string]any

	// delta is the pending change to value.
	delta map[string]any
}

// NewState creates a new State with the given value and delta maps.
//
// The delta map is written in place so callers can share it with an [EventActions].
func NewState(value, delta map[string]any) *State {
	if value == nil {
		value = make(map[string]any)
	}
	if delta == nil {
		delta = make(map[string]any)
	}

	return &State{
		value: value,
		delta: delta,
	}
}

// Get returns the value for the given key, prioritizing delta values over the committed ones.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(key)
}

func (s *State) get(key string) (any, bool) {
	if val, ok := s.delta[key]; ok {
		if val == nil {
			return nil, false
		}
		return val, true
	}

	val, ok := s.value[key]
	return val, ok
}

// GetWithDefault returns the value for the given key, or defaultVal if the key doesn't exist.
func (s *State) GetWithDefault(key string, defaultVal any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if val, ok := s.get(key); ok {
		return val
	}
	return defaultVal
}

// Set records a pending write for key.
func (s *State) Set(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delta[key] = val
}

// Delete records a pending deletion for key.
func (s *State) Delete(key string) {
	s.Set(key, nil)
}

// Has reports whether the state contains the given key.
func (s *State) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// HasDelta reports whether there are any pending changes.
func (s *State) HasDelta() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.delta) > 0
}

// Update records pending writes for every key in update.
func (s *State) Update(update map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maps.Copy(s.delta, update)
}

// Delta returns a copy of the pending changes.
func (s *State) Delta() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.delta)
}

// ToMap returns the merged view of the committed value and the pending delta.
func (s *State) ToMap() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := maps.Clone(s.value)
	if result == nil {
		result = make(map[string]any)
	}
	ApplyStateDelta(result, s.delta)
	return result
}

// Merge commits delta into the committed value.
//
// Keys whose value is nil are removed. Merging the same delta twice yields
// the same state as merging it once.
func (s *State) Merge(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ApplyStateDelta(s.value, delta)
}

// Commit merges the pending delta into the committed value and clears it.
func (s *State) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ApplyStateDelta(s.value, s.delta)
	clear(s.delta)
}

// ApplyStateDelta merges delta into dst in place, deleting keys whose value is nil.
func ApplyStateDelta(dst, delta map[string]any) {
	for k, v := range delta {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

// ExtractStateDelta splits delta into app, user and session scoped maps.
//
// App and user keys are returned without their prefix. Temp keys are dropped.
func ExtractStateDelta(delta map[string]any) (app, user, session map[string]any) {
	app = make(map[string]any)
	user = make(map[string]any)
	session = make(map[string]any)

	for k, v := range delta {
		switch {
		case strings.HasPrefix(k, AppPrefix):
			app[strings.TrimPrefix(k, AppPrefix)] = v
		case strings.HasPrefix(k, UserPrefix):
			user[strings.TrimPrefix(k, UserPrefix)] = v
		case strings.HasPrefix(k, TempPrefix):
		default:
			session[k] = v
		}
	}
	return app, user, session
}

// TrimTempDelta returns delta without temp-scoped keys.
func TrimTempDelta(delta map[string]any) map[string]any {
	if len(delta) == 0 {
		return delta
	}
	out := make(map[string]any, len(delta))
	for k, v := range delta {
		if !strings.HasPrefix(k, TempPrefix) {
			out[k] = v
		}
	}
	return out
}
