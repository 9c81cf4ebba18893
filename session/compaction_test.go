// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session_test

import (
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

type recordingSummarizer struct {
	windows [][]*types.Event
}

func (r *recordingSummarizer) Summarize(ctx context.Context, events []*types.Event) (*types.Event, error) {
	r.windows = append(r.windows, events)
	return types.NewEvent().
		WithAuthor(types.AuthorUser).
		WithActions(types.NewEventActions().WithCompaction(&types.EventCompaction{
			StartTimestamp:   events[0].Timestamp,
			EndTimestamp:     events[len(events)-1].Timestamp,
			CompactedContent: genai.NewContentFromText("summary", genai.RoleModel),
		})), nil
}

func invocationsOf(events []*types.Event) []string {
	var ids []string
	for _, ev := range events {
		if len(ids) == 0 || ids[len(ids)-1] != ev.InvocationID {
			ids = append(ids, ev.InvocationID)
		}
	}
	return ids
}

func TestCompactSlidingWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewInMemoryService()
	ses, err := svc.CreateSession(ctx, "app", "u", "s", nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := session.CompactionConfig{Interval: 2, OverlapSize: 1}
	summarizer := &recordingSummarizer{}

	sec := 0
	addInvocation := func(id string) {
		t.Helper()
		for _, author := range []string{types.AuthorUser, "agent"} {
			sec++
			if _, err := svc.AppendEvent(ctx, ses, textEvent(id, author, id+" "+author, sec)); err != nil {
				t.Fatal(err)
			}
		}
	}

	addInvocation("inv1")
	if ev, err := session.Compact(ctx, svc, ses, cfg, summarizer); err != nil || ev != nil {
		t.Fatalf("Compact below the interval = %v, %v", ev, err)
	}

	addInvocation("inv2")
	ev, err := session.Compact(ctx, svc, ses, cfg, summarizer)
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Actions.Compaction == nil {
		t.Fatal("expected a compaction event")
	}
	if ev.Author != types.AuthorUser {
		t.Errorf("compaction author = %q, want user", ev.Author)
	}

	addInvocation("inv3")
	if ev, err := session.Compact(ctx, svc, ses, cfg, summarizer); err != nil || ev != nil {
		t.Fatalf("Compact with one new invocation = %v, %v", ev, err)
	}

	addInvocation("inv4")
	if _, err := session.Compact(ctx, svc, ses, cfg, summarizer); err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"inv1", "inv2"},
		{"inv2", "inv3", "inv4"},
	}
	var got [][]string
	for _, w := range summarizer.windows {
		got = append(got, invocationsOf(w))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compaction windows mismatch (-want +got):\n%s", diff)
	}

	compactions := 0
	for _, ev := range ses.Events() {
		if ev.Actions != nil && ev.Actions.Compaction != nil {
			compactions++
		}
	}
	if compactions != 2 {
		t.Errorf("compaction events in session = %d, want 2", compactions)
	}
}

func TestCompactConfigErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := session.NewInMemoryService()
	ses, err := svc.CreateSession(ctx, "app", "u", "s", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := session.Compact(ctx, svc, ses, session.CompactionConfig{}, &recordingSummarizer{}); err == nil {
		t.Error("expected an error for a zero interval")
	}
	if _, err := session.Compact(ctx, svc, ses, session.CompactionConfig{Interval: 1}, nil); err == nil {
		t.Error("expected an error for a nil summarizer")
	}
}

type summaryModel struct {
	requests []*types.LLMRequest
}

func (m *summaryModel) Name() string              { return "fake-summary" }
func (m *summaryModel) SupportedModels() []string { return []string{"fake-summary"} }

func (m *summaryModel) GenerateContent(ctx context.Context, req *types.LLMRequest) (*types.LLMResponse, error) {
	m.requests = append(m.requests, req)
	return &types.LLMResponse{Content: genai.NewContentFromText("they greeted", genai.RoleModel)}, nil
}

func (m *summaryModel) StreamGenerateContent(ctx context.Context, req *types.LLMRequest) iter.Seq2[*types.LLMResponse, error] {
	return func(yield func(*types.LLMResponse, error) bool) {
		resp, err := m.GenerateContent(ctx, req)
		yield(resp, err)
	}
}

func TestLLMEventSummarizer(t *testing.T) {
	t.Parallel()

	model := &summaryModel{}
	summarizer := session.NewLLMEventSummarizer(model, "")
	events := []*types.Event{
		textEvent("inv1", types.AuthorUser, "hello", 1),
		textEvent("inv1", "agent", "hi there", 2),
	}

	ev, err := summarizer.Summarize(context.Background(), events)
	if err != nil {
		t.Fatal(err)
	}

	if len(model.requests) != 1 {
		t.Fatalf("model calls = %d, want 1", len(model.requests))
	}
	prompt := model.requests[0].Contents[0].Parts[0].Text
	for _, line := range []string{"user: hello", "agent: hi there"} {
		if !strings.Contains(prompt, line) {
			t.Errorf("prompt missing %q:\n%s", line, prompt)
		}
	}

	c := ev.Actions.Compaction
	if c == nil {
		t.Fatal("summary event has no compaction")
	}
	if !c.StartTimestamp.Equal(events[0].Timestamp) || !c.EndTimestamp.Equal(events[1].Timestamp) {
		t.Errorf("compaction range = [%v, %v]", c.StartTimestamp, c.EndTimestamp)
	}
	if c.CompactedContent.Role != genai.RoleModel || c.CompactedContent.Parts[0].Text != "they greeted" {
		t.Errorf("compacted content = %+v", c.CompactedContent)
	}
	if ev.Author != types.AuthorUser {
		t.Errorf("author = %q, want user", ev.Author)
	}
}
