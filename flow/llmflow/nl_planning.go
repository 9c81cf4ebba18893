// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"iter"

	"github.com/go-a2a/agentflow/types"
)

// thinkingPlanner is implemented by planners relying on the model's built-in thinking.
type thinkingPlanner interface {
	ApplyThinkingConfig(request *types.LLMRequest)
}

// NLPlanningRequestProcessor adds the planning instruction of the agent's
// planner and hides earlier thoughts from the model.
type NLPlanningRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*NLPlanningRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *NLPlanningRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		planner := agentPlanner(ictx)
		if planner == nil {
			return
		}

		if tp, ok := planner.(thinkingPlanner); ok {
			tp.ApplyThinkingConfig(request)
		}
		if si := planner.BuildPlanningInstruction(ctx, types.NewReadOnlyContext(ictx), request); si != "" {
			request.AppendInstructions(si)
		}

		removeThoughts(request)
	}
}

// NLPlanningResponseProcessor lets the planner rewrite the response parts,
// e.g. marking the reasoning as thoughts.
type NLPlanningResponseProcessor struct{}

var _ types.LLMResponseProcessor = (*NLPlanningResponseProcessor)(nil)

// Run implements [types.LLMResponseProcessor].
func (p *NLPlanningResponseProcessor) Run(ctx context.Context, ictx *types.InvocationContext, response *types.LLMResponse) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		if response == nil || response.Content == nil || len(response.Content.Parts) == 0 {
			return
		}
		planner := agentPlanner(ictx)
		if planner == nil {
			return
		}

		cctx := types.NewCallbackContext(ictx)
		if parts := planner.ProcessPlanningResponse(ctx, cctx, response.Content.Parts); parts != nil {
			response.Content.Parts = parts
		}

		if cctx.State().HasDelta() {
			yield(types.NewEvent().
				WithInvocationID(ictx.InvocationID).
				WithAuthor(ictx.Agent.Name()).
				WithBranch(ictx.Branch).
				WithActions(cctx.EventActions()), nil)
		}
	}
}

func agentPlanner(ictx *types.InvocationContext) types.Planner {
	llmAgent, ok := ictx.Agent.AsLLMAgent()
	if !ok {
		return nil
	}
	return llmAgent.Planner()
}

// removeThoughts clears the thought flag of the request history. The contents
// are copies owned by the request.
func removeThoughts(request *types.LLMRequest) {
	for _, content := range request.Contents {
		for _, part := range content.Parts {
			part.Thought = false
		}
	}
}
