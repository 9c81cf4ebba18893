// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"golang.org/x/time/rate"
)

// DefaultMaxLLMCalls is the default limit on the total number of llm calls.
const DefaultMaxLLMCalls = 500

// StreamingMode is the streaming mode.
type StreamingMode int

const (
	StreamingModeNone StreamingMode = iota
	StreamingModeSSE
)

// String returns a string representation of the StreamingMode.
func (mode StreamingMode) String() string {
	switch mode {
	case StreamingModeNone:
		return "none"
	case StreamingModeSSE:
		return "sse"
	}
	return ""
}

// ParseStreamingMode parses "none" or "sse". Unknown values map to [StreamingModeNone].
func ParseStreamingMode(s string) StreamingMode {
	if s == StreamingModeSSE.String() {
		return StreamingModeSSE
	}
	return StreamingModeNone
}

// RunConfig represents a configs for runtime behavior of agents.
type RunConfig struct {
	// StreamingMode selects between one response per LLM call and partial responses.
	StreamingMode StreamingMode

	// MaxLLMCalls is a limit on the total number of llm calls for a given run.
	//
	// Values <= 0 allow unbounded calls.
	MaxLLMCalls int

	// SaveInputBlobsAsArtifacts saves inline data of the user message as artifacts.
	SaveInputBlobsAsArtifacts bool

	// ToolRetry is the retry policy for tools that do not declare their own.
	ToolRetry *RetryPolicy

	// LLMRateLimiter, when set, is waited on before every LLM call.
	LLMRateLimiter *rate.Limiter
}

// NewRunConfig returns a [RunConfig] with default values.
func NewRunConfig() *RunConfig {
	return &RunConfig{
		MaxLLMCalls: DefaultMaxLLMCalls,
	}
}
