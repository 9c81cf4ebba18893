// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"iter"
)

// Model represents a generative AI model.
type Model interface {
	// Name returns the name of the LLM model.
	//
	// e.g. gemini-2.0-flash or claude-3-5-sonnet-latest.
	Name() string

	// SupportedModels returns the name patterns the model registers for.
	SupportedModels() []string

	// GenerateContent generates one content from the given contents and tools.
	GenerateContent(ctx context.Context, request *LLMRequest) (*LLMResponse, error)

	// StreamGenerateContent generates content with streaming call.
	//
	// Partial responses carry Partial=true. The stream ends with a non-partial
	// response aggregating the text of the turn.
	StreamGenerateContent(ctx context.Context, request *LLMRequest) iter.Seq2[*LLMResponse, error]
}
