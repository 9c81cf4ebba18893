// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"iter"
	"strconv"

	"github.com/go-a2a/agentflow/types"
)

// IdentityLLMRequestProcessor tells the model the name and description of the agent.
type IdentityLLMRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*IdentityLLMRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *IdentityLLMRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		agent := ictx.Agent
		si := "You are an agent. Your internal name is " + strconv.Quote(agent.Name()) + "."
		if desc := agent.Description(); desc != "" {
			si += " The description about you is " + strconv.Quote(desc)
		}
		request.AppendInstructions(si)
	}
}
