// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"time"
)

// Session represents a series of interactions between a user and agents.
//
// Implementations must be safe for concurrent readers; writes only happen
// through a [SessionService].
type Session interface {
	// ID returns the session ID.
	ID() string

	// AppName returns the application name.
	AppName() string

	// UserID returns the user ID.
	UserID() string

	// State returns a snapshot of the merged app, user and session state.
	State() map[string]any

	// Events returns a snapshot of the events in the session.
	Events() []*Event

	// LastUpdateTime is the last update time of the session.
	LastUpdateTime() time.Time

	// AddEvent adds events to this session.
	AddEvent(events ...*Event)

	// ApplyStateDelta merges delta into the session state, deleting nil values.
	ApplyStateDelta(delta map[string]any)

	// SetLastUpdateTime sets the last update time of the session.
	SetLastUpdateTime(time.Time)
}
