// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"github.com/go-a2a/agentflow/types"
)

// SingleFlow is the [LLMFlow] of agents which do not transfer to other agents.
// Tool calls are still handled.
type SingleFlow struct {
	*LLMFlow
}

var _ types.Flow = (*SingleFlow)(nil)

// NewSingleFlow returns a [SingleFlow] with the default processors.
func NewSingleFlow() *SingleFlow {
	flow := &SingleFlow{
		LLMFlow: NewLLMFlow(),
	}
	flow.WithRequestProcessors(SingleRequestProcessors()...)
	flow.WithResponseProcessors(SingleResponseProcessors()...)

	return flow
}

// SingleRequestProcessors returns the request processors of [SingleFlow] in the order they run.
func SingleRequestProcessors() []types.LLMRequestProcessor {
	return []types.LLMRequestProcessor{
		&BasicLLMRequestProcessor{},
		&AuthLLMRequestProcessor{},
		&InstructionsLLMRequestProcessor{},
		&IdentityLLMRequestProcessor{},
		&ContentLLMRequestProcessor{},
		&MemoryLLMRequestProcessor{},
		// planning contents marked as thoughts by the response processor are
		// unmarked here, so planning comes after the contents
		&NLPlanningRequestProcessor{},
		// mutates the contents to replace data files
		&CodeExecutionRequestProcessor{},
	}
}

// SingleResponseProcessors returns the response processors of [SingleFlow] in the order they run.
func SingleResponseProcessors() []types.LLMResponseProcessor {
	return []types.LLMResponseProcessor{
		&NLPlanningResponseProcessor{},
		&OutputSchemaResponseProcessor{},
		&CodeExecutionResponseProcessor{},
	}
}
