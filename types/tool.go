// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the name of the tool.
	Name() string

	// Description returns the description of the tool.
	Description() string

	// IsLongRunning whether the tool is a long running operation, which typically returns a
	// resource id first and finishes the operation later.
	IsLongRunning() bool

	// GetDeclaration gets the OpenAPI specification of this tool in the form of a [*genai.FunctionDeclaration].
	//
	// Tools that only adjust the request, e.g. built-in model tools, return nil.
	GetDeclaration() *genai.FunctionDeclaration

	// Run runs the tool with the given arguments and context.
	//
	// Long running tools may return a nil result to signal that the response
	// arrives later.
	Run(ctx context.Context, args map[string]any, toolCtx *ToolContext) (any, error)

	// ProcessLLMRequest processes the outgoing LLM request for this tool.
	ProcessLLMRequest(ctx context.Context, toolCtx *ToolContext, request *LLMRequest) error
}

// RetryableTool is a [Tool] declaring its own retry policy.
type RetryableTool interface {
	Tool

	// RetryPolicy returns the retry policy of the tool, or nil to use the run default.
	RetryPolicy() *RetryPolicy
}

// RetryPolicy describes how a failing tool execution is retried.
//
// The delay before attempt n+1 is min(MaxDelay, BaseDelay*2^n + jitter).
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// Disabled surfaces the first error as a step error instead of an error result.
	Disabled bool
}

// DefaultRetryPolicy returns a policy of 3 attempts starting at 200ms, capped at 5s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Toolset represents a base for toolset.
//
// A toolset is a collection of tools that can be used by an agent.
type Toolset interface {
	// GetTools returns the all tools in the toolset based on the provided context.
	GetTools(ctx context.Context, rctx *ReadOnlyContext) ([]Tool, error)

	// Close releases resources held by the toolset.
	Close() error
}

// ValidateTool reports a [ConfigError] unless the tool has an identifier-safe
// name and a non-blank description.
func ValidateTool(name, description string) error {
	if !isIdentifier(name) {
		return NewConfigError("tool name must be a valid identifier, got %q", name)
	}
	if strings.TrimSpace(description) == "" {
		return NewConfigError("tool %s must have a description", name)
	}
	return nil
}
