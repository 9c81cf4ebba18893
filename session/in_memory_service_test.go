// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// textEvent returns an event of invocationID authored by author at baseTime plus sec seconds.
func textEvent(invocationID, author, text string, sec int) *types.Event {
	role := genai.RoleModel
	if author == types.AuthorUser {
		role = genai.RoleUser
	}
	return types.NewEvent().
		WithInvocationID(invocationID).
		WithAuthor(author).
		WithContent(genai.NewContentFromText(text, genai.Role(role))).
		WithTimestamp(baseTime.Add(time.Duration(sec) * time.Second))
}

func withDelta(ev *types.Event, delta map[string]any) *types.Event {
	ev.Actions.StateDelta = delta
	return ev
}

func TestInMemoryServiceCreateSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewInMemoryService()

	ses, err := svc.CreateSession(ctx, "app", "u", "", map[string]any{
		"k":      "v",
		"app:a":  "shared",
		"user:p": "pref",
		"temp:t": "gone",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ses.ID() == "" {
		t.Fatal("expected a generated session id")
	}

	want := map[string]any{"k": "v", "app:a": "shared", "user:p": "pref"}
	if diff := cmp.Diff(want, ses.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.CreateSession(ctx, "app", "u", ses.ID(), nil); err == nil {
		t.Error("expected an error for a duplicate session id")
	}

	other, err := svc.CreateSession(ctx, "app", "u", "other", nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"app:a": "shared", "user:p": "pref"}, other.State()); diff != "" {
		t.Errorf("app and user state not shared (-want +got):\n%s", diff)
	}
}

func TestInMemoryServiceAppendEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewInMemoryService()

	ses, err := svc.CreateSession(ctx, "app", "u", "s", map[string]any{"k": "v0", "old": "x"})
	if err != nil {
		t.Fatal(err)
	}

	partial := textEvent("inv1", "agent", "par", 1)
	partial.Partial = true
	partial.Actions.StateDelta = map[string]any{"k": "partial"}
	if _, err := svc.AppendEvent(ctx, ses, partial); err != nil {
		t.Fatal(err)
	}
	if got := len(ses.Events()); got != 0 {
		t.Fatalf("partial event was appended: %d events", got)
	}
	if got := ses.State()["k"]; got != "v0" {
		t.Fatalf("partial event changed state: k = %v", got)
	}

	ev := withDelta(textEvent("inv1", "agent", "hello", 2), map[string]any{
		"k":        "v1",
		"old":      nil,
		"app:n":    "appval",
		"user:m":   "userval",
		"temp:tmp": "scratch",
	})
	if _, err := svc.AppendEvent(ctx, ses, ev); err != nil {
		t.Fatal(err)
	}
	if _, ok := ev.Actions.StateDelta["temp:tmp"]; ok {
		t.Error("temp key persisted in the event delta")
	}
	if !ses.LastUpdateTime().Equal(ev.Timestamp) {
		t.Errorf("LastUpdateTime = %v, want %v", ses.LastUpdateTime(), ev.Timestamp)
	}

	got, err := svc.GetSession(ctx, "app", "u", "s", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"k": "v1", "app:n": "appval", "user:m": "userval"}
	if diff := cmp.Diff(want, got.State()); diff != "" {
		t.Errorf("stored state mismatch (-want +got):\n%s", diff)
	}
	if n := len(got.Events()); n != 1 {
		t.Fatalf("stored events = %d, want 1", n)
	}

	// applying the same delta again is idempotent
	again := withDelta(textEvent("inv2", "agent", "again", 3), map[string]any{"k": "v1"})
	if _, err := svc.AppendEvent(ctx, got, again); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got.State()); diff != "" {
		t.Errorf("state after repeated delta (-want +got):\n%s", diff)
	}
}

func TestInMemoryServiceGetSessionConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewInMemoryService()
	ses, err := svc.CreateSession(ctx, "app", "u", "s", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		if _, err := svc.AppendEvent(ctx, ses, textEvent("inv", "agent", "m", i)); err != nil {
			t.Fatal(err)
		}
	}

	tests := map[string]struct {
		config *types.GetSessionConfig
		want   int
	}{
		"all":             {config: nil, want: 5},
		"recent":          {config: &types.GetSessionConfig{NumRecentEvents: 2}, want: 2},
		"recent too many": {config: &types.GetSessionConfig{NumRecentEvents: 10}, want: 5},
		"after":           {config: &types.GetSessionConfig{AfterTimestamp: baseTime.Add(3 * time.Second)}, want: 2},
		"after and recent": {config: &types.GetSessionConfig{
			AfterTimestamp:  baseTime.Add(1 * time.Second),
			NumRecentEvents: 3,
		}, want: 3},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := svc.GetSession(ctx, "app", "u", "s", tt.config)
			if err != nil {
				t.Fatal(err)
			}
			if n := len(got.Events()); n != tt.want {
				t.Errorf("events = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestInMemoryServiceListAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewInMemoryService()
	for _, id := range []string{"b", "a"} {
		ses, err := svc.CreateSession(ctx, "app", "u", id, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.AppendEvent(ctx, ses, textEvent("inv", "agent", "m", 1)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.ListSessions(ctx, "app", "u")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, s := range list {
		ids = append(ids, s.ID())
		if len(s.Events()) != 0 {
			t.Errorf("ListSessions returned events for %s", s.ID())
		}
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("ListSessions mismatch (-want +got):\n%s", diff)
	}

	for range 2 {
		if err := svc.DeleteSession(ctx, "app", "u", "a"); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.GetSession(ctx, "app", "u", "a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("deleted session still returned")
	}
}

func TestInMemoryServiceSnapshotIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewInMemoryService()
	ses, err := svc.CreateSession(ctx, "app", "u", "s", map[string]any{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}

	state := ses.State()
	state["k"] = "mutated"
	if got := ses.State()["k"]; got != "v" {
		t.Errorf("State() returned the live map: k = %v", got)
	}
}
