// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"

	"google.golang.org/genai"
)

// Planner shapes how an LLM agent reasons before it answers.
//
// The flow asks for an instruction before each model call and lets the
// planner rewrite the parts of each non-partial response.
type Planner interface {
	// BuildPlanningInstruction returns text appended to the system
	// instruction, or "" for none.
	BuildPlanningInstruction(ctx context.Context, rctx *ReadOnlyContext, request *LLMRequest) string

	// ProcessPlanningResponse returns the parts to keep from a model
	// response, or nil to keep them unchanged.
	ProcessPlanningResponse(ctx context.Context, cctx *CallbackContext, responseParts []*genai.Part) []*genai.Part
}
