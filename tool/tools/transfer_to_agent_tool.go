// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// TransferToAgentToolName is the name of the tool handing the conversation to another agent.
const TransferToAgentToolName = "transfer_to_agent"

// TransferToAgentTool hands the current turn to another agent of the tree.
//
// It only records the target in the event actions; the flow runs the agent.
type TransferToAgentTool struct {
	*tool.Tool
}

var _ types.Tool = (*TransferToAgentTool)(nil)

// NewTransferToAgentTool returns the new [TransferToAgentTool].
func NewTransferToAgentTool() *TransferToAgentTool {
	return &TransferToAgentTool{
		Tool: tool.MustNewTool(TransferToAgentToolName, "Transfer the question to another agent."),
	}
}

// GetDeclaration implements [types.Tool].
func (t *TransferToAgentTool) GetDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"agent_name": {
					Type:        genai.TypeString,
					Description: "the agent name to transfer to.",
				},
			},
			Required: []string{"agent_name"},
		},
	}
}

// Run implements [types.Tool].
func (t *TransferToAgentTool) Run(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	name, ok := args["agent_name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%s: agent_name must be a non-empty string, got %v", t.Name(), args["agent_name"])
	}
	toolCtx.Actions().TransferToAgent = name
	return nil, nil
}

// ProcessLLMRequest implements [types.Tool].
func (t *TransferToAgentTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return tool.Declare(t, request)
}
