// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"google.golang.org/genai"
)

// ReadOnlyContext provides read-only access to agent context.
type ReadOnlyContext struct {
	ictx *InvocationContext
}

// NewReadOnlyContext creates a new read-only context.
func NewReadOnlyContext(ictx *InvocationContext) *ReadOnlyContext {
	return &ReadOnlyContext{
		ictx: ictx,
	}
}

// InvocationContext returns the underlying invocation context.
func (rc *ReadOnlyContext) InvocationContext() *InvocationContext {
	return rc.ictx
}

// UserContent returns the user content that started this invocation.
func (rc *ReadOnlyContext) UserContent() *genai.Content {
	return rc.ictx.UserContent
}

// InvocationID returns the current invocation id.
func (rc *ReadOnlyContext) InvocationID() string {
	return rc.ictx.InvocationID
}

// AgentName returns the name of the agent that is currently running.
func (rc *ReadOnlyContext) AgentName() string {
	return rc.ictx.Agent.Name()
}

// Branch returns the branch of the current agent.
func (rc *ReadOnlyContext) Branch() string {
	return rc.ictx.Branch
}

// State returns a snapshot of the session state, including temp keys set in this invocation.
func (rc *ReadOnlyContext) State() map[string]any {
	return rc.ictx.State()
}
