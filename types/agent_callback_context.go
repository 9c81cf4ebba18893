// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ErrNoArtifactService is returned by artifact helpers when no artifact service is configured.
var ErrNoArtifactService = errors.New("artifact service is not initialized")

// CallbackContext provides the context of various callbacks within an agent run.
//
// State writes are recorded in the event actions and only become visible to
// other contexts once the resulting event is appended to the session.
type CallbackContext struct {
	*ReadOnlyContext

	eventActions *EventActions

	state *State
}

// NewCallbackContext creates a new [*CallbackContext] with fresh event actions.
func NewCallbackContext(ictx *InvocationContext) *CallbackContext {
	return NewCallbackContextWithActions(ictx, NewEventActions())
}

// NewCallbackContextWithActions creates a new [*CallbackContext] recording into actions.
func NewCallbackContextWithActions(ictx *InvocationContext, actions *EventActions) *CallbackContext {
	if actions.StateDelta == nil {
		actions.StateDelta = make(map[string]any)
	}
	if actions.ArtifactDelta == nil {
		actions.ArtifactDelta = make(map[string]int)
	}
	return &CallbackContext{
		ReadOnlyContext: NewReadOnlyContext(ictx),
		eventActions:    actions,
		state:           NewState(ictx.State(), actions.StateDelta),
	}
}

// EventActions returns the event actions recorded by this context.
func (cc *CallbackContext) EventActions() *EventActions {
	return cc.eventActions
}

// State returns the delta-aware state of the current session.
//
// Writes go to the event actions' state delta.
func (cc *CallbackContext) State() *State {
	return cc.state
}

// LoadArtifact loads an artifact attached to the current session.
//
// A negative version loads the latest one. It returns nil if the artifact does not exist.
func (cc *CallbackContext) LoadArtifact(ctx context.Context, filename string, version int) (*genai.Part, error) {
	svc := cc.ictx.ArtifactService
	if svc == nil {
		return nil, ErrNoArtifactService
	}

	return svc.LoadArtifact(ctx, cc.ictx.AppName(), cc.ictx.UserID(), cc.ictx.Session.ID(), filename, version)
}

// SaveArtifact saves an artifact and records it as delta for the current session.
func (cc *CallbackContext) SaveArtifact(ctx context.Context, filename string, artifact *genai.Part) (int, error) {
	svc := cc.ictx.ArtifactService
	if svc == nil {
		return 0, ErrNoArtifactService
	}

	version, err := svc.SaveArtifact(ctx, cc.ictx.AppName(), cc.ictx.UserID(), cc.ictx.Session.ID(), filename, artifact)
	if err != nil {
		return 0, err
	}

	cc.eventActions.ArtifactDelta[filename] = version
	return version, nil
}

// ListArtifacts lists the filenames of the artifacts attached to the current session.
func (cc *CallbackContext) ListArtifacts(ctx context.Context) ([]string, error) {
	svc := cc.ictx.ArtifactService
	if svc == nil {
		return nil, ErrNoArtifactService
	}

	return svc.ListArtifactKeys(ctx, cc.ictx.AppName(), cc.ictx.UserID(), cc.ictx.Session.ID())
}
