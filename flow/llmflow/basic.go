// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"fmt"
	"iter"

	deepcopy "github.com/tiendc/go-deepcopy"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// BasicLLMRequestProcessor fills in the model name, the generation config and
// the output schema of the agent.
type BasicLLMRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*BasicLLMRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *BasicLLMRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			return
		}

		model, err := llmAgent.CanonicalModel(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		request.Model = model.Name()

		// the agent's config is shared by every invocation, processors mutate a copy
		config := &genai.GenerateContentConfig{}
		if src := llmAgent.GenerateContentConfig(); src != nil {
			if err := deepcopy.Copy(config, src); err != nil {
				yield(nil, fmt.Errorf("copy generate content config: %w", err))
				return
			}
		}
		request.Config = config

		if schema := llmAgent.OutputSchema(); schema != nil {
			request.SetOutputSchema(schema)
		}
	}
}
