// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/pool"
	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/types"
)

// CompactionConfig configures sliding-window compaction.
type CompactionConfig struct {
	// Interval is the number of new invocations that triggers a compaction.
	Interval int

	// OverlapSize is the number of already compacted invocations included again in the next window.
	OverlapSize int
}

// Summarizer condenses a range of events into one compaction event.
type Summarizer interface {
	// Summarize returns an event whose actions carry the [types.EventCompaction] for events,
	// or nil when there is nothing to summarize.
	Summarize(ctx context.Context, events []*types.Event) (*types.Event, error)
}

var summarizePrompt = heredoc.Doc(`
	The following is a conversation history between a user and an AI agent.
	Summarize the conversation concisely. Focus on key information, decisions
	made, and any open tasks, so the agent can continue the conversation from
	the summary alone.

	Conversation history:
`)

// LLMEventSummarizer summarizes events with a [types.Model].
type LLMEventSummarizer struct {
	model  types.Model
	prompt string
}

var _ Summarizer = (*LLMEventSummarizer)(nil)

// NewLLMEventSummarizer returns a summarizer backed by model.
//
// An empty prompt selects the default prompt.
func NewLLMEventSummarizer(model types.Model, prompt string) *LLMEventSummarizer {
	if prompt == "" {
		prompt = summarizePrompt
	}
	return &LLMEventSummarizer{
		model:  model,
		prompt: prompt,
	}
}

// Summarize implements [Summarizer].
func (s *LLMEventSummarizer) Summarize(ctx context.Context, events []*types.Event) (*types.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	transcript := formatTranscript(events)
	if transcript == "" {
		return nil, nil
	}

	req := types.NewLLMRequest([]*genai.Content{
		genai.NewContentFromText(s.prompt+transcript, genai.RoleUser),
	}, types.WithModelName(s.model.Name()))

	resp, err := s.model.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("summarize events: %w", err)
	}
	if resp == nil || resp.Content == nil {
		return nil, nil
	}

	summary := &genai.Content{
		Role:  genai.RoleModel,
		Parts: resp.Content.Parts,
	}
	ev := types.NewEvent().
		WithAuthor(types.AuthorUser).
		WithActions(types.NewEventActions().WithCompaction(&types.EventCompaction{
			StartTimestamp:   events[0].Timestamp,
			EndTimestamp:     events[len(events)-1].Timestamp,
			CompactedContent: summary,
		}))
	return ev, nil
}

// formatTranscript renders the text parts of events as "author: text" lines.
func formatTranscript(events []*types.Event) string {
	sb := pool.String.Get()
	defer pool.String.Put(sb)

	for _, ev := range events {
		if ev.LLMResponse == nil || ev.Content == nil {
			continue
		}
		for _, part := range ev.Content.Parts {
			if part == nil || part.Text == "" || part.Thought {
				continue
			}
			sb.WriteString(ev.Author)
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(part.Text))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Compact runs sliding-window compaction over ses and appends the resulting
// compaction event through svc.
//
// It is a no-op, returning nil, when fewer than cfg.Interval invocations
// happened since the last compaction.
func Compact(ctx context.Context, svc types.SessionService, ses types.Session, cfg CompactionConfig, summarizer Summarizer) (*types.Event, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("compaction interval must be positive")
	}
	if summarizer == nil {
		return nil, errors.New("compaction requires a summarizer")
	}

	window := compactionWindow(ses.Events(), cfg)
	if len(window) == 0 {
		return nil, nil
	}

	ev, err := summarizer.Summarize(ctx, window)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}

	logging.FromContext(ctx).InfoContext(ctx, "compacting session",
		slog.String("session_id", ses.ID()),
		slog.Int("events", len(window)),
		slog.Time("start", window[0].Timestamp),
		slog.Time("end", window[len(window)-1].Timestamp),
	)

	return svc.AppendEvent(ctx, ses, ev)
}

// compactionWindow returns the events to summarize, or nil when the
// compaction threshold is not reached.
func compactionWindow(events []*types.Event, cfg CompactionConfig) []*types.Event {
	var lastEnd time.Time
	for _, ev := range events {
		if c := compactionOf(ev); c != nil && c.EndTimestamp.After(lastEnd) {
			lastEnd = c.EndTimestamp
		}
	}

	var (
		all  []string
		seen = make(map[string]bool)
		news []string
	)
	for _, ev := range events {
		if ev.InvocationID == "" || compactionOf(ev) != nil || seen[ev.InvocationID] {
			continue
		}
		seen[ev.InvocationID] = true
		all = append(all, ev.InvocationID)
		if ev.Timestamp.After(lastEnd) {
			news = append(news, ev.InvocationID)
		}
	}
	if len(news) < cfg.Interval {
		return nil
	}

	first := 0
	for i, id := range all {
		if id == news[0] {
			first = i
			break
		}
	}
	startID := all[max(0, first-max(0, cfg.OverlapSize))]
	endID := news[len(news)-1]

	start, end := -1, -1
	for i, ev := range events {
		if compactionOf(ev) != nil {
			continue
		}
		if start < 0 && ev.InvocationID == startID {
			start = i
		}
		if ev.InvocationID == endID {
			end = i
		}
	}
	if start < 0 || end < start {
		return nil
	}

	window := make([]*types.Event, 0, end-start+1)
	for _, ev := range events[start : end+1] {
		if compactionOf(ev) == nil {
			window = append(window, ev)
		}
	}
	return window
}

func compactionOf(ev *types.Event) *types.EventCompaction {
	if ev.Actions == nil {
		return nil
	}
	return ev.Actions.Compaction
}
