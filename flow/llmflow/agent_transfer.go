// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/go-a2a/agentflow/internal/pool"
	"github.com/go-a2a/agentflow/tool/tools"
	"github.com/go-a2a/agentflow/types"
)

// AgentTransferLLMRequestProcessor lists the agents the model may transfer to
// and declares the transfer_to_agent tool.
type AgentTransferLLMRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*AgentTransferLLMRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *AgentTransferLLMRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			return
		}

		targets := transferTargets(llmAgent)
		if len(targets) == 0 {
			return
		}

		request.AppendInstructions(transferInstructions(llmAgent, targets))

		transfer := tools.NewTransferToAgentTool()
		if err := transfer.ProcessLLMRequest(ctx, types.NewToolContext(ictx, "", nil), request); err != nil {
			yield(nil, err)
		}
	}
}

const transferInstructionTemplate = `
You have a list of other agents to transfer to:

%s

If you are the best to answer the question according to your description, you
can answer it.

If another agent is better for answering the question according to its
description, call transfer_to_agent function to transfer the
question to that agent. When transferring, do not generate any text other than
the function call.
`

func transferInstructions(llmAgent types.LLMAgent, targets []types.Agent) string {
	sb := pool.String.Get()
	defer pool.String.Put(sb)

	for i, target := range targets {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Agent name: " + target.Name() + "\n")
		sb.WriteString("Agent description: " + target.Description() + "\n")
	}

	si := heredoc.Docf(transferInstructionTemplate, strings.TrimSuffix(sb.String(), "\n"))

	parent := llmAgent.ParentAgent()
	if parent != nil && slices.Contains(targets, parent) {
		si += "\n" + heredoc.Docf(`
			Your parent agent is %s. If neither the other agents nor
			you are best for answering the question according to the descriptions, transfer
			to your parent agent.
		`, parent.Name())
	}

	return si
}

// transferTargets returns the sub-agents of llmAgent, then its parent and
// peers when the parent is an LLM agent and transfer to them is allowed.
func transferTargets(llmAgent types.LLMAgent) []types.Agent {
	targets := slices.Clone(llmAgent.SubAgents())

	parent := llmAgent.ParentAgent()
	if parent == nil {
		return targets
	}
	if _, ok := parent.AsLLMAgent(); !ok {
		return targets
	}

	if !llmAgent.DisallowTransferToParent() {
		targets = append(targets, parent)
	}
	if !llmAgent.DisallowTransferToPeers() {
		for _, peer := range parent.SubAgents() {
			if peer.Name() != llmAgent.Name() {
				targets = append(targets, peer)
			}
		}
	}

	return targets
}
