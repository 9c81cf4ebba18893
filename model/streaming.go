// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// StreamingAggregator merges the text chunks of a streamed model turn.
//
// Text chunks are passed through marked partial while their thought and
// regular text are buffered separately. A chunk with other parts, such as a
// function call, first flushes the buffered text as one non-partial response.
type StreamingAggregator struct {
	thought strings.Builder
	text    strings.Builder

	usage        *genai.GenerateContentResponseUsageMetadata
	finishReason genai.FinishReason
}

// NewStreamingAggregator returns an empty [StreamingAggregator].
func NewStreamingAggregator() *StreamingAggregator {
	return &StreamingAggregator{}
}

// Process consumes one chunk and returns the responses to emit for it, in order.
func (a *StreamingAggregator) Process(response *types.LLMResponse) []*types.LLMResponse {
	if response.UsageMetadata != nil {
		a.usage = response.UsageMetadata
	}
	if response.FinishReason != "" {
		a.finishReason = response.FinishReason
	}

	if isTextOnly(response) {
		for _, part := range response.Content.Parts {
			if part.Thought {
				a.thought.WriteString(part.Text)
			} else {
				a.text.WriteString(part.Text)
			}
		}
		response.Partial = true
		return []*types.LLMResponse{response}
	}

	if flushed := a.flush(); flushed != nil {
		return []*types.LLMResponse{flushed, response}
	}
	return []*types.LLMResponse{response}
}

// Close returns the aggregated response of the buffered text, or nil when
// there is none or the stream stopped for another reason than completion.
// The response of a truncated stream is withheld so that its last chunk
// stays partial.
func (a *StreamingAggregator) Close() *types.LLMResponse {
	switch a.finishReason {
	case "", genai.FinishReasonStop, genai.FinishReasonUnspecified:
		return a.flush()
	}
	return nil
}

// FinishReason returns the last finish reason seen.
func (a *StreamingAggregator) FinishReason() genai.FinishReason {
	return a.finishReason
}

func (a *StreamingAggregator) flush() *types.LLMResponse {
	if a.thought.Len() == 0 && a.text.Len() == 0 {
		return nil
	}

	var parts []*genai.Part
	if a.thought.Len() > 0 {
		parts = append(parts, &genai.Part{Text: a.thought.String(), Thought: true})
	}
	if a.text.Len() > 0 {
		parts = append(parts, genai.NewPartFromText(a.text.String()))
	}
	a.thought.Reset()
	a.text.Reset()

	return &types.LLMResponse{
		Content:       genai.NewContentFromParts(parts, genai.RoleModel),
		UsageMetadata: a.usage,
		FinishReason:  a.finishReason,
	}
}

// isTextOnly reports whether every part of the response is non-empty text.
func isTextOnly(response *types.LLMResponse) bool {
	if response.IsError() || response.Content == nil || len(response.Content.Parts) == 0 {
		return false
	}
	for _, part := range response.Content.Parts {
		if part == nil || part.Text == "" || part.FunctionCall != nil || part.InlineData != nil ||
			part.ExecutableCode != nil || part.CodeExecutionResult != nil {
			return false
		}
	}
	return true
}
