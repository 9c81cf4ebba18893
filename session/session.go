// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-a2a/agentflow/types"
)

// session represents a session with user interaction history.
//
// Readers get snapshots so parallel agent branches never share the
// underlying map or slice.
type session struct {
	id             string
	appName        string
	userID         string
	events         []*types.Event
	state          map[string]any
	lastUpdateTime time.Time

	mu sync.RWMutex
}

var _ types.Session = (*session)(nil)

// NewSession creates a new session with the given parameters.
func NewSession(appName, userID, id string, state map[string]any, lastUpdateTime time.Time) types.Session {
	return newSession(appName, userID, id, state, lastUpdateTime)
}

func newSession(appName, userID, id string, state map[string]any, lastUpdateTime time.Time) *session {
	if state == nil {
		state = make(map[string]any)
	}

	return &session{
		id:             id,
		appName:        appName,
		userID:         userID,
		state:          state,
		lastUpdateTime: lastUpdateTime,
	}
}

// ID implements [types.Session].
func (s *session) ID() string {
	return s.id
}

// AppName implements [types.Session].
func (s *session) AppName() string {
	return s.appName
}

// UserID implements [types.Session].
func (s *session) UserID() string {
	return s.userID
}

// Events implements [types.Session].
func (s *session) Events() []*types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.events)
}

// State implements [types.Session].
func (s *session) State() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.state)
}

// LastUpdateTime implements [types.Session].
func (s *session) LastUpdateTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastUpdateTime
}

// SetLastUpdateTime implements [types.Session].
func (s *session) SetLastUpdateTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUpdateTime = t
}

// AddEvent implements [types.Session].
func (s *session) AddEvent(events ...*types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, events...)
}

// ApplyStateDelta implements [types.Session].
func (s *session) ApplyStateDelta(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	types.ApplyStateDelta(s.state, delta)
}

// clone returns a deep copy of s, keeping only the events selected by config.
func (s *session) clone(config *types.GetSessionConfig) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := newSession(s.appName, s.userID, s.id, maps.Clone(s.state), s.lastUpdateTime)
	events := filterEvents(s.events, config)
	c.events = make([]*types.Event, len(events))
	for i, ev := range events {
		c.events[i] = ev.Clone()
	}
	return c
}

// filterEvents applies the AfterTimestamp and NumRecentEvents filters of config.
func filterEvents(events []*types.Event, config *types.GetSessionConfig) []*types.Event {
	if config == nil {
		return events
	}

	if !config.AfterTimestamp.IsZero() {
		i := len(events)
		for i > 0 && !events[i-1].Timestamp.Before(config.AfterTimestamp) {
			i--
		}
		events = events[i:]
	}
	if n := config.NumRecentEvents; n > 0 && n < len(events) {
		events = events[len(events)-n:]
	}
	return events
}

// applyEventToSession applies the persisted part of event to ses.
//
// Temp keys are stripped from the event's state delta in place.
func applyEventToSession(ses types.Session, event *types.Event) {
	if event.Actions != nil && len(event.Actions.StateDelta) > 0 {
		event.Actions.StateDelta = types.TrimTempDelta(event.Actions.StateDelta)
		ses.ApplyStateDelta(event.Actions.StateDelta)
	}
	ses.AddEvent(event)
	ses.SetLastUpdateTime(event.Timestamp)
}

// mergeScopedState returns the session state with app and user state merged in under their prefixes.
func mergeScopedState(sessionState, appState, userState map[string]any) map[string]any {
	merged := maps.Clone(sessionState)
	if merged == nil {
		merged = make(map[string]any, len(appState)+len(userState))
	}
	for k, v := range appState {
		merged[types.AppPrefix+k] = v
	}
	for k, v := range userState {
		merged[types.UserPrefix+k] = v
	}
	return merged
}
