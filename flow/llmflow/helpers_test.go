// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow_test

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

// scriptedModel answers with its responses in order and repeats the last one.
// In streaming mode every response of a call is yielded from stream.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*types.LLMResponse
	stream    [][]*types.LLMResponse
	requests  []*types.LLMRequest
}

var _ types.Model = (*scriptedModel)(nil)

func newScriptedModel(responses ...*types.LLMResponse) *scriptedModel {
	return &scriptedModel{responses: responses}
}

func text(s string) *types.LLMResponse {
	return &types.LLMResponse{Content: genai.NewContentFromText(s, genai.RoleModel)}
}

func call(name string, args map[string]any) *types.LLMResponse {
	return &types.LLMResponse{Content: genai.NewContentFromFunctionCall(name, args, genai.RoleModel)}
}

func (m *scriptedModel) Name() string { return "scripted-model" }

func (m *scriptedModel) SupportedModels() []string { return []string{`scripted-.*`} }

func (m *scriptedModel) GenerateContent(ctx context.Context, request *types.LLMRequest) (*types.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, request)
	if len(m.responses) == 0 {
		return nil, errors.New("scripted model: no response left")
	}
	response := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return copyResponse(response)
}

func (m *scriptedModel) StreamGenerateContent(ctx context.Context, request *types.LLMRequest) iter.Seq2[*types.LLMResponse, error] {
	return func(yield func(*types.LLMResponse, error) bool) {
		m.mu.Lock()
		m.requests = append(m.requests, request)
		var chunks []*types.LLMResponse
		if len(m.stream) > 0 {
			chunks = m.stream[0]
			m.stream = m.stream[1:]
		}
		m.mu.Unlock()

		for _, chunk := range chunks {
			if !yield(copyResponse(chunk)) {
				return
			}
		}
	}
}

func (m *scriptedModel) Requests() []*types.LLMRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func copyResponse(response *types.LLMResponse) (*types.LLMResponse, error) {
	var c types.LLMResponse
	if err := deepcopy.Copy(&c, response); err != nil {
		return nil, err
	}
	return &c, nil
}

// conversation is a session driven turn by turn like a runner does.
type conversation struct {
	t         *testing.T
	svc       *session.InMemoryService
	ses       types.Session
	runConfig *types.RunConfig
}

func newConversation(t *testing.T, state map[string]any) *conversation {
	t.Helper()

	svc := session.NewInMemoryService()
	ses, err := svc.CreateSession(t.Context(), "app", "user", "session", state)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return &conversation{t: t, svc: svc, ses: ses, runConfig: types.NewRunConfig()}
}

// send runs a for one user message and returns the events and the first error.
func (c *conversation) send(a types.Agent, content *genai.Content) ([]*types.Event, error) {
	c.t.Helper()

	ctx := c.t.Context()
	ictx := types.NewInvocationContext(a, c.ses, c.svc,
		types.WithUserContent(content),
		types.WithRunConfig(c.runConfig),
	)
	userEvent := types.NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(types.AuthorUser).
		WithContent(content)
	if _, err := c.svc.AppendEvent(ctx, c.ses, userEvent); err != nil {
		c.t.Fatalf("AppendEvent: %v", err)
	}

	var events []*types.Event
	for event, err := range a.Run(ctx, ictx) {
		if err != nil {
			return events, err
		}
		if _, err := c.svc.AppendEvent(ctx, c.ses, event); err != nil {
			c.t.Fatalf("AppendEvent: %v", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// say is send with a text message that must not fail.
func (c *conversation) say(a types.Agent, msg string) []*types.Event {
	c.t.Helper()

	events, err := c.send(a, genai.NewContentFromText(msg, genai.RoleUser))
	if err != nil {
		c.t.Fatalf("Run: %v", err)
	}
	return events
}

// functionResponses returns the function responses of events keyed by function name.
func functionResponses(events []*types.Event) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, event := range events {
		for _, resp := range event.GetFunctionResponses() {
			out[resp.Name] = resp.Response
		}
	}
	return out
}

// requestFunctionResponses collects the function responses sent to the model in request.
func requestFunctionResponses(request *types.LLMRequest) []*genai.FunctionResponse {
	var out []*genai.FunctionResponse
	for _, content := range request.Contents {
		for _, part := range content.Parts {
			if part.FunctionResponse != nil {
				out = append(out, part.FunctionResponse)
			}
		}
	}
	return out
}

func texts(events []*types.Event) []string {
	var out []string
	for _, event := range events {
		if s := event.Text(); s != "" {
			out = append(out, event.Author+":"+s)
		}
	}
	return out
}
