// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// GoogleSearchTool enables the search grounding built into Gemini models.
//
// The model runs the search itself, so the tool is never called locally.
type GoogleSearchTool struct {
	*tool.Tool
}

var _ types.Tool = (*GoogleSearchTool)(nil)

// NewGoogleSearchTool returns the new [GoogleSearchTool].
func NewGoogleSearchTool() *GoogleSearchTool {
	return &GoogleSearchTool{
		Tool: tool.MustNewTool("google_search", "Searches the web with Google Search."),
	}
}

// ProcessLLMRequest implements [types.Tool].
func (t *GoogleSearchTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	if request.Config == nil {
		request.Config = &genai.GenerateContentConfig{}
	}

	switch {
	case strings.HasPrefix(request.Model, "gemini-1"):
		if len(request.Config.Tools) > 0 {
			return fmt.Errorf("%s can not be used with other tools in Gemini 1.x", t.Name())
		}
		request.Config.Tools = append(request.Config.Tools, &genai.Tool{
			GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{},
		})
	case strings.HasPrefix(request.Model, "gemini-"):
		request.Config.Tools = append(request.Config.Tools, &genai.Tool{
			GoogleSearch: &genai.GoogleSearch{},
		})
	default:
		return fmt.Errorf("%s is not supported for model %s", t.Name(), request.Model)
	}
	return nil
}
