// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"time"
)

// GetSessionConfig is the configuration of getting a session.
type GetSessionConfig struct {
	// NumRecentEvents keeps only the last n events when > 0.
	NumRecentEvents int

	// AfterTimestamp keeps only events at or after the timestamp when non-zero.
	AfterTimestamp time.Time
}

// SessionService is an interface for managing sessions and their events.
//
// Appends to the same session must not run concurrently.
type SessionService interface {
	// CreateSession creates a new session. An empty sessionID generates one.
	CreateSession(ctx context.Context, appName, userID, sessionID string, state map[string]any) (Session, error)

	// GetSession retrieves a specific session, or nil if it does not exist.
	GetSession(ctx context.Context, appName, userID, sessionID string, config *GetSessionConfig) (Session, error)

	// ListSessions lists all sessions for a user/app without events.
	ListSessions(ctx context.Context, appName, userID string) ([]Session, error)

	// DeleteSession removes a specific session.
	DeleteSession(ctx context.Context, appName, userID, sessionID string) error

	// AppendEvent adds an event to a session and updates the session state.
	//
	// Partial events are returned unchanged and never stored.
	AppendEvent(ctx context.Context, ses Session, event *Event) (*Event, error)
}
