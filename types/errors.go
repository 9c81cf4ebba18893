// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"errors"
	"fmt"
)

// Error codes carried by error events.
const (
	// ErrorCodeAgentExecution marks an event produced from a failure inside agent logic.
	ErrorCodeAgentExecution = "AGENT_EXECUTION_ERROR"

	// ErrorCodeOutputSchemaValidation marks a final response that did not match the output schema.
	ErrorCodeOutputSchemaValidation = "OUTPUT_SCHEMA_VALIDATION_ERROR"
)

// ErrPartialFinalEvent is returned when a step ends with a partial event,
// meaning the model output was truncated.
var ErrPartialFinalEvent = errors.New("last event of a step must not be partial")

// TruncatedResponseError reports a step whose last event was partial.
//
// It wraps [ErrPartialFinalEvent].
type TruncatedResponseError struct {
	// Author is the agent whose step was truncated.
	Author string

	// FinishReason is the finish reason reported by the model, if any.
	FinishReason string
}

// Error returns a string representation of the TruncatedResponseError.
func (e *TruncatedResponseError) Error() string {
	if e.FinishReason != "" {
		return fmt.Sprintf("%s: %s (finish reason %s)", ErrPartialFinalEvent, e.Author, e.FinishReason)
	}
	return fmt.Sprintf("%s: %s", ErrPartialFinalEvent, e.Author)
}

// Unwrap returns [ErrPartialFinalEvent].
func (e *TruncatedResponseError) Unwrap() error {
	return ErrPartialFinalEvent
}

// LLMCallsLimitExceededError represents error thrown when the number of LLM calls exceed the limit.
type LLMCallsLimitExceededError string

// NewLLMCallsLimitExceededError returns the new [LLMCallsLimitExceededError] error.
func NewLLMCallsLimitExceededError(msg string, a ...any) error {
	return LLMCallsLimitExceededError(fmt.Sprintf(msg, a...))
}

// Error returns a string representation of the LLMCallsLimitExceededError.
func (e LLMCallsLimitExceededError) Error() string {
	return string(e)
}

// ConfigError reports an invalid agent, tool or graph configuration.
type ConfigError string

// NewConfigError returns the new [ConfigError] error.
func NewConfigError(msg string, a ...any) error {
	return ConfigError(fmt.Sprintf(msg, a...))
}

// Error returns a string representation of the ConfigError.
func (e ConfigError) Error() string {
	return "invalid config: " + string(e)
}

// MissingContextVariableError is returned when an instruction references an absent state key.
type MissingContextVariableError string

// Error returns a string representation of the MissingContextVariableError.
func (e MissingContextVariableError) Error() string {
	return fmt.Sprintf("context variable not found: %q", string(e))
}

// ToolNotFoundError is returned when the model calls a function that no tool declares.
type ToolNotFoundError string

// Error returns a string representation of the ToolNotFoundError.
func (e ToolNotFoundError) Error() string {
	return fmt.Sprintf("function %s is not found in the tools map", string(e))
}

// AgentError reports a failure inside the logic of one agent.
//
// It travels up the agent tree as a plain error. Composite agents may drop the
// failing branch, and the runner turns it into an error event authored by Agent.
type AgentError struct {
	Agent  string
	Branch string
	Err    error
}

// Error returns a string representation of the AgentError.
func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

// Unwrap returns the underlying error.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentErrorEvent returns the event reporting err with [ErrorCodeAgentExecution].
//
// The event is authored by the failing agent when err wraps an [*AgentError],
// otherwise by author.
func NewAgentErrorEvent(invocationID, author string, err error) *Event {
	branch, msg := "", err.Error()
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		author, branch, msg = agentErr.Agent, agentErr.Branch, agentErr.Err.Error()
	}
	return NewEvent().
		WithInvocationID(invocationID).
		WithAuthor(author).
		WithBranch(branch).
		WithLLMResponse(new(LLMResponse).WithError(ErrorCodeAgentExecution, msg))
}

// IsFatal reports whether err must abort the run instead of becoming an error event.
func IsFatal(err error) bool {
	var limitErr LLMCallsLimitExceededError
	return errors.As(err, &limitErr) || errors.Is(err, ErrPartialFinalEvent)
}

// IsAbort reports whether err ends the whole run: a fatal error or a
// cancelled or expired context.
func IsAbort(err error) bool {
	return IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
