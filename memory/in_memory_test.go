// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/memory"
	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

func newSession(t *testing.T, id string, texts ...string) types.Session {
	t.Helper()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ses := session.NewSession("app", "u", id, nil, base)
	for i, text := range texts {
		ses.AddEvent(types.NewEvent().
			WithAuthor("agent").
			WithContent(genai.NewContentFromText(text, genai.RoleModel)).
			WithTimestamp(base.Add(time.Duration(i) * time.Minute)))
	}
	// an event without content is never indexed
	ses.AddEvent(types.NewEvent().WithAuthor("agent"))
	return ses
}

func TestInMemoryServiceSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memory.NewInMemoryService()
	if err := mem.AddSessionToMemory(ctx, newSession(t, "s1", "My favourite colour is Blue.", "The weather is nice")); err != nil {
		t.Fatal(err)
	}
	if err := mem.AddSessionToMemory(ctx, newSession(t, "s2", "whales", "blue whales are big")); err != nil {
		t.Fatal(err)
	}

	tests := map[string]struct {
		appName string
		query   string
		want    []string
	}{
		"case insensitive": {appName: "app", query: "BLUE", want: []string{"My favourite colour is Blue.", "blue whales are big"}},
		"punctuation":      {appName: "app", query: "weather?", want: []string{"The weather is nice"}},
		"no match":         {appName: "app", query: "cats", want: nil},
		"empty query":      {appName: "app", query: "  ", want: nil},
		"other app":        {appName: "other", query: "blue", want: nil},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := mem.SearchMemory(ctx, tt.appName, "u", tt.query)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, m := range resp.Memories {
				got = append(got, m.Content.Parts[0].Text)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SearchMemory(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestInMemoryServiceReplacesSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memory.NewInMemoryService()
	for _, text := range []string{"alpha", "beta"} {
		if err := mem.AddSessionToMemory(ctx, newSession(t, "s1", text)); err != nil {
			t.Fatal(err)
		}
	}

	resp, err := mem.SearchMemory(ctx, "app", "u", "alpha beta")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Memories) != 1 || resp.Memories[0].Content.Parts[0].Text != "beta" {
		t.Errorf("memories = %+v, want only the latest session contents", resp.Memories)
	}
}
