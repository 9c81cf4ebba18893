// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// Error codes of responses without usable content.
const (
	ErrorCodeUnknown = "UNKNOWN_ERROR"
)

// CreateLLMResponse converts a Gemini response to a [types.LLMResponse].
//
// A candidate without parts, or a blocked prompt, becomes an error response.
func CreateLLMResponse(resp *genai.GenerateContentResponse) *types.LLMResponse {
	response := &types.LLMResponse{}
	if resp == nil {
		return response.WithError(ErrorCodeUnknown, "generate content response is nil")
	}
	response.UsageMetadata = resp.UsageMetadata

	switch {
	case len(resp.Candidates) > 0:
		candidate := resp.Candidates[0]
		response.FinishReason = candidate.FinishReason
		response.GroundingMetadata = candidate.GroundingMetadata
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			response.Content = candidate.Content
			if response.Content.Role == "" {
				response.Content.Role = genai.RoleModel
			}
		} else {
			response.WithError(string(candidate.FinishReason), candidate.FinishMessage)
		}

	case resp.PromptFeedback != nil:
		feedback := resp.PromptFeedback
		code := string(feedback.BlockReason)
		if code == "" {
			code = "UNKNOWN_BLOCK"
		}
		msg := feedback.BlockReasonMessage
		if msg == "" {
			msg = "content was blocked, check prompt feedback for details"
		}
		response.WithError(code, msg)

	default:
		response.WithError(ErrorCodeUnknown, "unknown error in generate content response")
	}

	return response
}
