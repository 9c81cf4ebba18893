// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
)

// CodeExecutor executes code blocks found in model responses.
type CodeExecutor interface {
	// OptimizeDataFile reports whether inline data files of the request, e.g. csv,
	// are extracted and attached to the code executor.
	OptimizeDataFile() bool

	// IsStateful reports whether the code executor is stateful.
	//
	// Stateful executors can reuse variables and imports across multiple calls.
	IsStateful() bool

	// ErrorRetryAttempts returns the number of attempts to retry on consecutive code execution errors.
	ErrorRetryAttempts() int

	// CodeBlockDelimiters returns the list of the enclosing delimiters to identify the code blocks.
	//
	// For example, the delimiter ("```python\n", "\n```") identifies
	//
	//	```python
	//	print("hello")
	//	```
	CodeBlockDelimiters() []DelimiterPair

	// ExecutionResultDelimiters returns the delimiters to format the code execution result.
	ExecutionResultDelimiters() DelimiterPair

	// ExecuteCode runs the provided code and returns the execution result.
	ExecuteCode(ctx context.Context, ictx *InvocationContext, input *CodeExecutionInput) (*CodeExecutionResult, error)
}

// BuiltInCodeExecutor is a [CodeExecutor] whose code runs inside the model.
type BuiltInCodeExecutor interface {
	CodeExecutor

	// ProcessLLMRequest enables code execution on the request.
	ProcessLLMRequest(request *LLMRequest) error
}

// DelimiterPair represents a pair of start and end delimiters for text parsing.
type DelimiterPair struct {
	Start string
	End   string
}

// CodeExecutionInput represents a structure that contains the input of code execution.
type CodeExecutionInput struct {
	// Code is the code to execute.
	Code string `json:"code"`

	// InputFiles are files that should be available to the code during execution.
	InputFiles []*CodeExecutionFile `json:"input_files,omitzero"`

	// ExecutionID identifies the session of stateful executors.
	ExecutionID string `json:"execution_id,omitzero"`
}

// CodeExecutionResult represents the result of code execution.
type CodeExecutionResult struct {
	// Stdout contains the standard output from the executed code.
	Stdout string `json:"stdout"`

	// Stderr contains the standard error output from the executed code.
	Stderr string `json:"stderr"`

	// OutputFiles contains files generated during code execution.
	OutputFiles []*CodeExecutionFile `json:"output_files,omitzero"`
}

// CodeExecutionFile represents a file with content for code execution.
type CodeExecutionFile struct {
	// Name is the filename, including any relative path.
	Name string `json:"name"`

	// Content is the raw file content.
	Content []byte `json:"content"`

	// MIMEType specifies the MIME type of the file content.
	MIMEType string `json:"mime_type,omitzero"`
}
