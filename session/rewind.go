// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/types"
)

// Rewind appends an event to ses that reverts session-scoped state and
// session artifacts to their values immediately before invocationID.
//
// App and user state and "user:" artifacts are left untouched. Previous
// artifact versions are restored through reference parts, and artifacts that
// did not exist yet become empty placeholders. artifacts may be nil when the
// session has no artifacts.
func Rewind(ctx context.Context, svc types.SessionService, artifacts types.ArtifactService, ses types.Session, invocationID string) (*types.Event, error) {
	events := ses.Events()
	idx := -1
	for i, ev := range events {
		if ev.InvocationID == invocationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("invocation %s not found in session %s", invocationID, ses.ID())
	}

	stateDelta := rewindStateDelta(events, idx)
	artifactDelta, err := rewindArtifacts(ctx, artifacts, ses, events, idx)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "rewinding session",
		slog.String("session_id", ses.ID()),
		slog.String("before_invocation_id", invocationID),
		slog.Int("state_keys", len(stateDelta)),
		slog.Int("artifacts", len(artifactDelta)),
	)

	ev := types.NewEvent().
		WithInvocationID(types.NewInvocationContextID()).
		WithAuthor(types.AuthorUser).
		WithActions(types.NewEventActions().
			WithRewindBeforeInvocationID(invocationID).
			WithStateDelta(stateDelta).
			WithArtifactDelta(artifactDelta))

	return svc.AppendEvent(ctx, ses, ev)
}

// rewindStateDelta returns the session-scoped delta turning the state after
// all events into the state after events[:idx].
func rewindStateDelta(events []*types.Event, idx int) map[string]any {
	before := replaySessionState(events[:idx])
	now := replaySessionState(events)

	delta := make(map[string]any)
	for k, v := range now {
		past, ok := before[k]
		switch {
		case !ok:
			delta[k] = nil
		case !reflect.DeepEqual(past, v):
			delta[k] = past
		}
	}
	for k, v := range before {
		if _, ok := now[k]; !ok {
			delta[k] = v
		}
	}
	return delta
}

func replaySessionState(events []*types.Event) map[string]any {
	state := make(map[string]any)
	for _, ev := range events {
		if ev.Actions == nil {
			continue
		}
		_, _, sessionDelta := types.ExtractStateDelta(ev.Actions.StateDelta)
		types.ApplyStateDelta(state, sessionDelta)
	}
	return state
}

func replayArtifactVersions(events []*types.Event) map[string]int {
	versions := make(map[string]int)
	for _, ev := range events {
		if ev.Actions == nil {
			continue
		}
		for name, v := range ev.Actions.ArtifactDelta {
			versions[name] = v
		}
	}
	return versions
}

func rewindArtifacts(ctx context.Context, artifacts types.ArtifactService, ses types.Session, events []*types.Event, idx int) (map[string]int, error) {
	before := replayArtifactVersions(events[:idx])
	now := replayArtifactVersions(events)

	delta := make(map[string]int)
	for name, version := range now {
		if strings.HasPrefix(name, types.UserArtifactPrefix) {
			continue
		}
		past, ok := before[name]
		if ok && past == version {
			continue
		}
		if artifacts == nil {
			return nil, fmt.Errorf("rewind artifact %s: %w", name, types.ErrNoArtifactService)
		}

		part := &genai.Part{InlineData: &genai.Blob{MIMEType: "application/octet-stream", Data: []byte{}}}
		if ok {
			part = types.ArtifactRef{
				AppName:   ses.AppName(),
				UserID:    ses.UserID(),
				SessionID: ses.ID(),
				Filename:  name,
				Version:   past,
			}.Part()
		}

		v, err := artifacts.SaveArtifact(ctx, ses.AppName(), ses.UserID(), ses.ID(), name, part)
		if err != nil {
			return nil, fmt.Errorf("rewind artifact %s: %w", name, err)
		}
		delta[name] = v
	}
	return delta, nil
}
