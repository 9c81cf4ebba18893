// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package model provides the [types.Model] adapters of the LLM providers.
//
// [Gemini] talks to the Gemini API through google.golang.org/genai and
// [Claude] to the Anthropic Messages API. A [Registry] maps model names to
// adapters; it is built explicitly and handed to the agents that resolve
// models by name:
//
//	registry := model.NewDefaultRegistry(model.WithLogger(logger))
//	a, err := agent.NewLLMAgent(ctx, "assistant",
//		agent.WithModelName("gemini-2.0-flash", registry),
//	)
//
// In streaming mode both adapters yield partial text responses followed by
// one aggregated response, see [StreamingAggregator].
package model
