// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// NewGetUserChoiceTool returns a long running tool presenting options to the user.
//
// The tool returns no result; the client answers the call with the user's choice.
func NewGetUserChoiceTool() *LongRunningFunctionTool {
	fn := func(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
		toolCtx.Actions().SkipSummarization = true
		return nil, nil
	}
	params := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"options": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"options"},
	}

	t, err := NewLongRunningFunctionTool("get_user_choice", "Provides the options to the user and asks them to choose one.", fn, WithParameters(params))
	if err != nil {
		panic(err)
	}
	return t
}
