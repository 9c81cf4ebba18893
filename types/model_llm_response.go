// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"strings"

	"google.golang.org/genai"
)

// LLMResponse represents a provider agnostic response from a language model.
type LLMResponse struct {
	// Content is the content of the response.
	Content *genai.Content

	// GroundingMetadata is the grounding metadata of the response.
	GroundingMetadata *genai.GroundingMetadata

	// UsageMetadata is the token accounting reported by the provider.
	UsageMetadata *genai.GenerateContentResponseUsageMetadata

	// FinishReason is the reason why the model stopped generating tokens.
	FinishReason genai.FinishReason

	// Partial indicates whether the text content is part of an unfinished text stream.
	//
	// Only used for streaming mode and when the content is plain text.
	Partial bool

	// TurnComplete indicates whether the response from the model is complete.
	TurnComplete bool

	// ErrorCode is the error code if the response is an error. Code varies by model.
	ErrorCode string

	// ErrorMessage is the error message if the response is an error.
	ErrorMessage string

	// Interrupted indicates that LLM was interrupted when generating the content.
	Interrupted bool

	// CustomMetadata is an optional key-value pair to label an LLMResponse.
	//
	// The entire map must be JSON serializable.
	CustomMetadata map[string]any
}

// WithContent sets the content and returns the response.
func (r *LLMResponse) WithContent(content *genai.Content) *LLMResponse {
	r.Content = content
	return r
}

// WithPartial sets the partial flag and returns the response.
func (r *LLMResponse) WithPartial(partial bool) *LLMResponse {
	r.Partial = partial
	return r
}

// WithTurnComplete sets the turn complete flag and returns the response.
func (r *LLMResponse) WithTurnComplete(complete bool) *LLMResponse {
	r.TurnComplete = complete
	return r
}

// WithError sets the error code and message and returns the response.
func (r *LLMResponse) WithError(code, msg string) *LLMResponse {
	r.ErrorCode = code
	r.ErrorMessage = msg
	return r
}

// IsError reports whether the response carries an error.
func (r *LLMResponse) IsError() bool {
	return r != nil && (r.ErrorCode != "" || r.ErrorMessage != "")
}

// IsEmpty reports whether the response has neither content nor error.
func (r *LLMResponse) IsEmpty() bool {
	return r == nil || ((r.Content == nil || len(r.Content.Parts) == 0) && !r.IsError())
}

// Text returns the concatenated non-thought text of the response.
func (r *LLMResponse) Text() string {
	if r == nil || r.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range r.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Clone returns a copy of r whose content parts slice can be mutated independently.
func (r *LLMResponse) Clone() *LLMResponse {
	if r == nil {
		return nil
	}
	c := *r
	if r.Content != nil {
		c.Content = &genai.Content{
			Role:  r.Content.Role,
			Parts: append([]*genai.Part(nil), r.Content.Parts...),
		}
	}
	return &c
}
