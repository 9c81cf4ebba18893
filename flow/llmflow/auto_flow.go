// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"github.com/go-a2a/agentflow/types"
)

// AutoFlow is [SingleFlow] with agent transfer.
//
// An agent may transfer to its sub-agents, and to its parent and peers when
// the parent is an LLM agent and the agent does not disallow it. The agent
// receiving the transfer stays active and answers the next user message.
type AutoFlow struct {
	*LLMFlow
}

var _ types.Flow = (*AutoFlow)(nil)

// NewAutoFlow returns an [AutoFlow] with the default processors.
func NewAutoFlow() *AutoFlow {
	flow := &AutoFlow{
		LLMFlow: NewLLMFlow(),
	}
	flow.WithRequestProcessors(AutoRequestProcessors()...)
	flow.WithResponseProcessors(SingleResponseProcessors()...)

	return flow
}

// AutoRequestProcessors returns the request processors of [AutoFlow] in the order they run.
func AutoRequestProcessors() []types.LLMRequestProcessor {
	return append(SingleRequestProcessors(), &AgentTransferLLMRequestProcessor{})
}
