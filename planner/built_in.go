// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// BuiltInPlanner relies on the built-in thinking of the model.
type BuiltInPlanner struct {
	thinkingConfig *genai.ThinkingConfig
}

var _ types.Planner = (*BuiltInPlanner)(nil)

// NewBuiltInPlanner returns a [BuiltInPlanner] setting thinkingConfig on every request.
//
// Models without thinking support reject requests carrying a thinking config.
func NewBuiltInPlanner(thinkingConfig *genai.ThinkingConfig) *BuiltInPlanner {
	return &BuiltInPlanner{
		thinkingConfig: thinkingConfig,
	}
}

// ApplyThinkingConfig sets the thinking config of the request.
func (p *BuiltInPlanner) ApplyThinkingConfig(request *types.LLMRequest) {
	if p.thinkingConfig == nil {
		return
	}
	if request.Config == nil {
		request.Config = new(genai.GenerateContentConfig)
	}
	request.Config.ThinkingConfig = p.thinkingConfig
}

// BuildPlanningInstruction implements [types.Planner].
func (p *BuiltInPlanner) BuildPlanningInstruction(context.Context, *types.ReadOnlyContext, *types.LLMRequest) string {
	return ""
}

// ProcessPlanningResponse implements [types.Planner].
//
// The response is kept as is.
func (p *BuiltInPlanner) ProcessPlanningResponse(context.Context, *types.CallbackContext, []*genai.Part) []*genai.Part {
	return nil
}
