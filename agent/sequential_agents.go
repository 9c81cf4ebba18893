// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"iter"

	"github.com/go-a2a/agentflow/types"
)

// SequentialAgent represents a shell agent that runs its sub-agents in sequence.
//
// Each sub-agent sees the session events and state changes of the ones before it.
type SequentialAgent struct {
	*types.BaseAgent
}

var _ types.Agent = (*SequentialAgent)(nil)

// NewSequentialAgent creates a new [SequentialAgent]. Sub-agents are given with [types.WithSubAgents].
func NewSequentialAgent(name string, opts ...types.Option) (*SequentialAgent, error) {
	a := &SequentialAgent{
		BaseAgent: types.NewBaseAgent(name, opts...),
	}
	if err := a.Bind(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Execute implements [types.Agent].
func (a *SequentialAgent) Execute(ctx context.Context, ictx *types.InvocationContext) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		for _, subAgent := range a.SubAgents() {
			for event, err := range subAgent.Run(ctx, ictx) {
				if !yield(event, err) || err != nil {
					return
				}
			}
			if ictx.EndInvocation() {
				return
			}
		}
	}
}
