// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// AgentTool lets an LLM agent call another agent like a function.
//
// The wrapped agent runs in a fresh in-memory session seeded with the state of
// the caller. Its state changes flow back to the caller and its artifacts are
// saved in the caller's session. The tool result is the text of the last
// event, or the parsed JSON when the agent has an output schema. A failure of
// the agent, or an error response of its model, fails the call.
type AgentTool struct {
	*tool.Tool

	agent             types.Agent
	skipSummarization bool
}

var _ types.Tool = (*AgentTool)(nil)

// AgentToolOption configures an [AgentTool].
type AgentToolOption func(*AgentTool)

// WithSkipSummarization ends the turn with the agent's answer instead of
// letting the calling model summarize it.
func WithSkipSummarization() AgentToolOption {
	return func(t *AgentTool) {
		t.skipSummarization = true
	}
}

// NewAgentTool returns the new [AgentTool] wrapping agent.
func NewAgentTool(agent types.Agent, opts ...AgentToolOption) (*AgentTool, error) {
	base, err := tool.NewTool(agent.Name(), agent.Description())
	if err != nil {
		return nil, err
	}
	t := &AgentTool{
		Tool:  base,
		agent: agent,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// GetDeclaration implements [types.Tool].
func (t *AgentTool) GetDeclaration() *genai.FunctionDeclaration {
	decl := &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"request": {Type: genai.TypeString},
			},
			Required: []string{"request"},
		},
	}
	if llmAgent, ok := t.agent.AsLLMAgent(); ok && llmAgent.InputSchema() != nil {
		decl.Parameters = llmAgent.InputSchema()
	}
	return decl
}

// ProcessLLMRequest implements [types.Tool].
func (t *AgentTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return tool.Declare(t, request)
}

// Run implements [types.Tool].
func (t *AgentTool) Run(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	if t.skipSummarization {
		toolCtx.Actions().SkipSummarization = true
	}

	llmAgent, isLLM := t.agent.AsLLMAgent()

	var input string
	if isLLM && llmAgent.InputSchema() != nil {
		b, err := json.Marshal(args, json.Deterministic(true))
		if err != nil {
			return nil, fmt.Errorf("encode %s input: %w", t.Name(), err)
		}
		input = string(b)
	} else {
		req, ok := args["request"].(string)
		if !ok {
			return nil, fmt.Errorf("%s: request must be a string, got %T", t.Name(), args["request"])
		}
		input = req
	}

	parent := toolCtx.InvocationContext()
	svc := session.NewInMemoryService()
	child, err := svc.CreateSession(ctx, parent.AppName(), parent.UserID(), "", toolCtx.State().ToMap())
	if err != nil {
		return nil, err
	}

	userContent := genai.NewContentFromText(input, genai.RoleUser)
	ictx := types.NewInvocationContext(t.agent, child, svc,
		types.WithArtifactService(newForwardingArtifactService(toolCtx)),
		types.WithMemoryService(parent.MemoryService),
		types.WithUserContent(userContent),
		types.WithRunConfig(parent.RunConfig),
	)
	userEvent := types.NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(types.AuthorUser).
		WithContent(userContent)
	if _, err := svc.AppendEvent(ctx, child, userEvent); err != nil {
		return nil, err
	}

	var last *types.Event
	for event, err := range t.agent.Run(ctx, ictx) {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
		if event.IsPartial() {
			continue
		}
		if event.IsError() {
			return nil, fmt.Errorf("%s: %s: %s", t.Name(), event.ErrorCode, event.ErrorMessage)
		}
		if event.Actions != nil && len(event.Actions.StateDelta) > 0 {
			ictx.RecordTempState(event.Actions.StateDelta)
			toolCtx.State().Update(event.Actions.StateDelta)
		}
		if _, err := svc.AppendEvent(ctx, child, event); err != nil {
			return nil, err
		}
		if event.HasContent() {
			last = event
		}
	}

	if last == nil {
		return "", nil
	}
	text := last.LLMResponse.Text()
	if isLLM && llmAgent.OutputSchema() != nil {
		var out map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
			return nil, fmt.Errorf("decode %s output: %w", t.Name(), err)
		}
		return out, nil
	}
	return text, nil
}
