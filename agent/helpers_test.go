// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_test

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/tiendc/go-deepcopy"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

// fakeModel replays canned responses and records the requests it receives.
type fakeModel struct {
	mu        sync.Mutex
	responses []*types.LLMResponse
	requests  []*types.LLMRequest
}

var _ types.Model = (*fakeModel)(nil)

func newFakeModel(responses ...*types.LLMResponse) *fakeModel {
	return &fakeModel{responses: responses}
}

func textResponse(text string) *types.LLMResponse {
	return &types.LLMResponse{Content: genai.NewContentFromText(text, genai.RoleModel)}
}

func callResponse(name string, args map[string]any) *types.LLMResponse {
	return &types.LLMResponse{Content: genai.NewContentFromFunctionCall(name, args, genai.RoleModel)}
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) SupportedModels() []string { return []string{`fake-.*`} }

func (m *fakeModel) GenerateContent(ctx context.Context, request *types.LLMRequest) (*types.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, request)
	if len(m.responses) == 0 {
		return nil, errors.New("fake model: no response left")
	}
	response := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	var c types.LLMResponse
	if err := deepcopy.Copy(&c, response); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *fakeModel) StreamGenerateContent(ctx context.Context, request *types.LLMRequest) iter.Seq2[*types.LLMResponse, error] {
	return func(yield func(*types.LLMResponse, error) bool) {
		yield(m.GenerateContent(ctx, request))
	}
}

func (m *fakeModel) Requests() []*types.LLMRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// runAgent runs a for one user message and appends every event to the
// session the way a runner does. The last response of a fake model repeats.
func runAgent(t *testing.T, a types.Agent, userText string, state map[string]any) ([]*types.Event, types.Session) {
	t.Helper()

	ctx := t.Context()
	svc := session.NewInMemoryService()
	ses, err := svc.CreateSession(ctx, "app", "user", "session", state)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	userContent := genai.NewContentFromText(userText, genai.RoleUser)
	ictx := types.NewInvocationContext(a, ses, svc, types.WithUserContent(userContent))

	userEvent := types.NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(types.AuthorUser).
		WithContent(userContent)
	if _, err := svc.AppendEvent(ctx, ses, userEvent); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	var events []*types.Event
	for event, err := range a.Run(ctx, ictx) {
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if _, err := svc.AppendEvent(ctx, ses, event); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
		events = append(events, event)
	}

	return events, ses
}

func eventTexts(events []*types.Event) []string {
	var texts []string
	for _, event := range events {
		if text := event.Text(); text != "" {
			texts = append(texts, event.Author+":"+text)
		}
	}
	return texts
}

func requestText(request *types.LLMRequest) string {
	var text string
	for _, content := range request.Contents {
		for _, part := range content.Parts {
			text += part.Text + "\n"
		}
	}
	return text
}
