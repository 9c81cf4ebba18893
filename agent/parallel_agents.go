// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/types"
)

// ParallelAgent represents a shell agent that runs its sub-agents concurrently.
//
// Every sub-agent runs in its own branch, so it does not see the events of
// its siblings. This suits tasks needing several independent attempts or
// perspectives, such as producing candidates for a later reviewer agent.
type ParallelAgent struct {
	*types.BaseAgent
}

var _ types.Agent = (*ParallelAgent)(nil)

// NewParallelAgent creates a new [ParallelAgent]. Sub-agents are given with [types.WithSubAgents].
func NewParallelAgent(name string, opts ...types.Option) (*ParallelAgent, error) {
	a := &ParallelAgent{
		BaseAgent: types.NewBaseAgent(name, opts...),
	}
	if err := a.Bind(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Execute implements [types.Agent].
func (a *ParallelAgent) Execute(ctx context.Context, ictx *types.InvocationContext) iter.Seq2[*types.Event, error] {
	subAgents := a.SubAgents()
	agentRuns := make([]AgentRun, len(subAgents))
	for i, subAgent := range subAgents {
		branchCtx := ictx.NewBranchContext(subAgent, a.Name())
		agentRuns[i] = func(ctx context.Context) iter.Seq2[*types.Event, error] {
			return subAgent.Run(ctx, branchCtx)
		}
	}

	return MergeAgentRun(logging.NewContext(ctx, a.Logger()), agentRuns)
}

// AgentRun starts one branch of a merged run under ctx.
type AgentRun func(ctx context.Context) iter.Seq2[*types.Event, error]

// mergedEvent is an event of one branch waiting to be consumed.
type mergedEvent struct {
	event  *types.Event
	err    error
	branch int
	ack    chan struct{}
}

// MergeAgentRun interleaves the events of concurrent agent runs in arrival order.
//
// A branch does not resume until the consumer has processed its last event,
// so state changes applied by the consumer are visible to the branch. A branch
// failing with an error that does not abort the run is logged and dropped
// while the others go on. Every branch runs under a context that is cancelled
// when the merged run ends, so stopping the iteration cancels every branch.
func MergeAgentRun(ctx context.Context, agentRuns []AgentRun) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		if len(agentRuns) == 0 {
			return
		}

		var wg sync.WaitGroup
		defer wg.Wait()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		eventCh := make(chan mergedEvent)
		for i, run := range agentRuns {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for event, err := range run(ctx) {
					ack := make(chan struct{})
					select {
					case eventCh <- mergedEvent{event: event, err: err, branch: i, ack: ack}:
					case <-ctx.Done():
						return
					}
					select {
					case <-ack:
					case <-ctx.Done():
						return
					}
					if err != nil {
						return
					}
				}
			}()
		}

		go func() {
			wg.Wait()
			close(eventCh)
		}()

		logger := logging.FromContext(ctx)
		for merged := range eventCh {
			if merged.err != nil {
				if types.IsAbort(merged.err) {
					yield(nil, merged.err)
					return
				}
				logger.WarnContext(ctx, "parallel branch failed",
					slog.Int("branch", merged.branch),
					slog.Any("error", merged.err),
				)
				close(merged.ack)
				continue
			}

			if !yield(merged.event, nil) {
				return
			}
			close(merged.ack)
		}
	}
}
