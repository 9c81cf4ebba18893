// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"iter"
	"log/slog"

	"github.com/go-a2a/agentflow/types"
)

// LoopAgent runs its sub-agents in sequence, repeatedly, until one of them
// escalates or the maximum number of iterations is reached.
type LoopAgent struct {
	*types.BaseAgent

	// maxIterations bounds the number of passes over the sub-agents.
	// Zero runs until a sub-agent escalates.
	maxIterations int
}

var _ types.Agent = (*LoopAgent)(nil)

// NewLoopAgent creates a new [LoopAgent]. Sub-agents are given with [types.WithSubAgents].
func NewLoopAgent(name string, opts ...types.Option) (*LoopAgent, error) {
	a := &LoopAgent{
		BaseAgent: types.NewBaseAgent(name, opts...),
	}
	if err := a.Bind(a); err != nil {
		return nil, err
	}
	return a, nil
}

// WithMaxIterations sets the maximum number of iterations. Zero means unbounded.
func (a *LoopAgent) WithMaxIterations(maxIterations int) *LoopAgent {
	a.maxIterations = max(maxIterations, 0)
	return a
}

// MaxIterations returns the maximum number of iterations.
func (a *LoopAgent) MaxIterations() int {
	return a.maxIterations
}

// Execute implements [types.Agent].
func (a *LoopAgent) Execute(ctx context.Context, ictx *types.InvocationContext) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		subAgents := a.SubAgents()
		if len(subAgents) == 0 {
			return
		}

		for iteration := 0; a.maxIterations == 0 || iteration < a.maxIterations; iteration++ {
			for _, subAgent := range subAgents {
				for event, err := range subAgent.Run(ctx, ictx) {
					if !yield(event, err) || err != nil {
						return
					}
					if event.Actions != nil && event.Actions.Escalate {
						a.Logger().DebugContext(ctx, "loop escalated",
							slog.String("agent", a.Name()),
							slog.String("by", event.Author),
							slog.Int("iteration", iteration+1),
						)
						return
					}
				}
				if ictx.EndInvocation() {
					return
				}
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
			}
		}
	}
}
