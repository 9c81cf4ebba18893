// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"fmt"
	"iter"

	"github.com/go-a2a/agentflow/tool/tools"
	"github.com/go-a2a/agentflow/types"
)

// MemoryLLMRequestProcessor appends the memories relevant to the user query to
// the instructions of agents with memory preloading enabled.
type MemoryLLMRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*MemoryLLMRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *MemoryLLMRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok || !llmAgent.PreloadMemory() || ictx.MemoryService == nil {
			return
		}

		if err := tools.PreloadMemories(ctx, types.NewToolContext(ictx, "", nil), request); err != nil {
			yield(nil, fmt.Errorf("preload memory: %w", err))
		}
	}
}
