// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package codeexecutor provides the code executors of LLM agents and the
// helpers the flow uses to extract, run and report code blocks.
package codeexecutor

import (
	"context"
	"errors"

	"github.com/go-a2a/agentflow/types"
)

// DefaultCodeBlockDelimiters are the delimiters of the code blocks looked up in model responses.
var DefaultCodeBlockDelimiters = []types.DelimiterPair{
	{Start: "```tool_code\n", End: "\n```"},
	{Start: "```python\n", End: "\n```"},
}

// DefaultExecutionResultDelimiters enclose the code execution results sent back to the model.
var DefaultExecutionResultDelimiters = types.DelimiterPair{Start: "```tool_output\n", End: "\n```"}

// DefaultErrorRetryAttempts is the number of consecutive failed executions tolerated per invocation.
const DefaultErrorRetryAttempts = 2

// Option configures a [BaseCodeExecutor].
type Option func(*BaseCodeExecutor)

// WithOptimizeDataFile extracts the csv inline data of requests into input files.
func WithOptimizeDataFile() Option {
	return func(e *BaseCodeExecutor) {
		e.optimizeDataFile = true
	}
}

// WithStateful keeps the execution id of the session so that variables survive between executions.
func WithStateful() Option {
	return func(e *BaseCodeExecutor) {
		e.stateful = true
	}
}

// WithErrorRetryAttempts sets the number of consecutive execution errors after which
// code blocks are no longer run in the invocation.
func WithErrorRetryAttempts(n int) Option {
	return func(e *BaseCodeExecutor) {
		e.errorRetryAttempts = n
	}
}

// WithCodeBlockDelimiters replaces the code block delimiters.
func WithCodeBlockDelimiters(delimiters ...types.DelimiterPair) Option {
	return func(e *BaseCodeExecutor) {
		e.codeBlockDelimiters = delimiters
	}
}

// WithExecutionResultDelimiters replaces the execution result delimiters.
func WithExecutionResultDelimiters(delimiters types.DelimiterPair) Option {
	return func(e *BaseCodeExecutor) {
		e.executionResultDelimiters = delimiters
	}
}

// BaseCodeExecutor holds the settings shared by code executors.
//
// It is meant to be embedded; ExecuteCode always fails.
type BaseCodeExecutor struct {
	optimizeDataFile          bool
	stateful                  bool
	errorRetryAttempts        int
	codeBlockDelimiters       []types.DelimiterPair
	executionResultDelimiters types.DelimiterPair
}

// NewBaseCodeExecutor returns a [BaseCodeExecutor] with the default delimiters.
func NewBaseCodeExecutor(opts ...Option) *BaseCodeExecutor {
	e := &BaseCodeExecutor{
		errorRetryAttempts:        DefaultErrorRetryAttempts,
		codeBlockDelimiters:       DefaultCodeBlockDelimiters,
		executionResultDelimiters: DefaultExecutionResultDelimiters,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OptimizeDataFile implements [types.CodeExecutor].
func (e *BaseCodeExecutor) OptimizeDataFile() bool { return e.optimizeDataFile }

// IsStateful implements [types.CodeExecutor].
func (e *BaseCodeExecutor) IsStateful() bool { return e.stateful }

// ErrorRetryAttempts implements [types.CodeExecutor].
func (e *BaseCodeExecutor) ErrorRetryAttempts() int { return e.errorRetryAttempts }

// CodeBlockDelimiters implements [types.CodeExecutor].
func (e *BaseCodeExecutor) CodeBlockDelimiters() []types.DelimiterPair { return e.codeBlockDelimiters }

// ExecutionResultDelimiters implements [types.CodeExecutor].
func (e *BaseCodeExecutor) ExecutionResultDelimiters() types.DelimiterPair {
	return e.executionResultDelimiters
}

// ErrNotImplemented is returned by executors which cannot run code themselves.
var ErrNotImplemented = errors.New("code execution is not implemented by this executor")

// ExecuteCode implements [types.CodeExecutor].
func (e *BaseCodeExecutor) ExecuteCode(context.Context, *types.InvocationContext, *types.CodeExecutionInput) (*types.CodeExecutionResult, error) {
	return nil, ErrNotImplemented
}

// ExecuteFunc runs one code execution input.
type ExecuteFunc func(ctx context.Context, ictx *types.InvocationContext, input *types.CodeExecutionInput) (*types.CodeExecutionResult, error)

// FuncCodeExecutor runs code through an [ExecuteFunc], e.g. a client of a remote sandbox.
type FuncCodeExecutor struct {
	*BaseCodeExecutor
	fn ExecuteFunc
}

var _ types.CodeExecutor = (*FuncCodeExecutor)(nil)

// NewFuncCodeExecutor returns a [FuncCodeExecutor] backed by fn.
func NewFuncCodeExecutor(fn ExecuteFunc, opts ...Option) *FuncCodeExecutor {
	return &FuncCodeExecutor{
		BaseCodeExecutor: NewBaseCodeExecutor(opts...),
		fn:               fn,
	}
}

// ExecuteCode implements [types.CodeExecutor].
func (e *FuncCodeExecutor) ExecuteCode(ctx context.Context, ictx *types.InvocationContext, input *types.CodeExecutionInput) (*types.CodeExecutionResult, error) {
	if e.fn == nil {
		return nil, ErrNotImplemented
	}
	return e.fn(ctx, ictx, input)
}
