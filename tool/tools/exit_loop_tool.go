// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// ExitLoopTool escalates, which stops the enclosing loop agent.
type ExitLoopTool struct {
	*tool.Tool
}

var _ types.Tool = (*ExitLoopTool)(nil)

// NewExitLoopTool returns the new [ExitLoopTool].
func NewExitLoopTool() *ExitLoopTool {
	return &ExitLoopTool{
		Tool: tool.MustNewTool("exit_loop", "Exits the loop.\n\nCall this function only when you are instructed to do so."),
	}
}

// GetDeclaration implements [types.Tool].
func (t *ExitLoopTool) GetDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
	}
}

// Run implements [types.Tool].
func (t *ExitLoopTool) Run(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	toolCtx.Actions().Escalate = true
	return nil, nil
}

// ProcessLLMRequest implements [types.Tool].
func (t *ExitLoopTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return tool.Declare(t, request)
}
