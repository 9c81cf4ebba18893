// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// Tool carries the fields shared by every tool implementation.
//
// Concrete tools embed *Tool and override GetDeclaration, Run and, when they
// declare a function, ProcessLLMRequest with [Declare].
type Tool struct {
	name        string
	description string

	// Whether the tool is a long running operation, which typically returns a
	// resource id first and finishes the operation later.
	isLongRunning bool

	retryPolicy *types.RetryPolicy
}

var _ types.RetryableTool = (*Tool)(nil)

// Option configures a [Tool].
type Option func(*Tool)

// WithLongRunning marks the tool as long running.
func WithLongRunning() Option {
	return func(t *Tool) {
		t.isLongRunning = true
	}
}

// WithRetryPolicy sets the retry policy of the tool, overriding the run default.
func WithRetryPolicy(policy *types.RetryPolicy) Option {
	return func(t *Tool) {
		t.retryPolicy = policy
	}
}

// NewTool returns the tool with the given name and description.
//
// It fails with a [types.ConfigError] when the name is not identifier-safe or
// the description is blank.
func NewTool(name, description string, opts ...Option) (*Tool, error) {
	if err := types.ValidateTool(name, description); err != nil {
		return nil, err
	}
	t := &Tool{
		name:        name,
		description: description,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MustNewTool is like [NewTool] but panics on an invalid name or description.
// It is meant for the tools of this module whose names are constants.
func MustNewTool(name, description string, opts ...Option) *Tool {
	t, err := NewTool(name, description, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name implements [types.Tool].
func (t *Tool) Name() string {
	return t.name
}

// Description implements [types.Tool].
func (t *Tool) Description() string {
	return t.description
}

// IsLongRunning implements [types.Tool].
func (t *Tool) IsLongRunning() bool {
	return t.isLongRunning
}

// RetryPolicy implements [types.RetryableTool].
func (t *Tool) RetryPolicy() *types.RetryPolicy {
	return t.retryPolicy
}

// GetDeclaration implements [types.Tool].
func (t *Tool) GetDeclaration() *genai.FunctionDeclaration {
	return nil
}

// Run implements [types.Tool].
func (t *Tool) Run(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	return nil, errors.New("not implemented")
}

// ProcessLLMRequest implements [types.Tool].
//
// The base tool declares nothing.
func (t *Tool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return nil
}

// Declare registers self in request and appends its function declaration.
func Declare(self types.Tool, request *types.LLMRequest) error {
	request.AppendTools(self)
	return nil
}
