// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package planner provides the planners of LLM agents.
//
// [BuiltInPlanner] turns on the thinking of models which support it.
// [PlanReActPlanner] asks any model to plan, reason and act under explicit tags
// and marks everything but the final answer as thoughts:
//
//	a, err := agent.NewLLMAgent(ctx, "researcher",
//		agent.WithModel(llm),
//		agent.WithPlanner(planner.NewPlanReActPlanner()),
//	)
package planner
