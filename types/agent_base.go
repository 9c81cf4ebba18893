// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/go-a2a/agentflow/internal/telemetry"
)

// BaseAgent represents the base agent.
//
// Concrete agents embed a *BaseAgent and call [BaseAgent.Bind] with
// themselves before use so that Run dispatches to their Execute.
type BaseAgent struct {
	*Config

	self Agent
}

// NewBaseAgent creates a new base agent with the given name.
func NewBaseAgent(name string, opts ...Option) *BaseAgent {
	return &BaseAgent{
		Config: NewConfig(name, opts...),
	}
}

// Bind validates the agent and attaches self as the concrete agent and as the
// parent of every sub-agent.
//
// Binding fails with a [ConfigError] if the name is invalid or a sub-agent
// already has a parent.
func (a *BaseAgent) Bind(self Agent) error {
	if err := ValidateAgentName(a.Name()); err != nil {
		return err
	}
	if self.base() != a {
		return NewConfigError("agent %s must be bound to the agent embedding it", a.Name())
	}

	seen := make(map[string]bool, len(a.subAgents))
	for _, sub := range a.subAgents {
		if seen[sub.Name()] {
			return NewConfigError("agent %s has duplicate sub-agent %s", a.Name(), sub.Name())
		}
		seen[sub.Name()] = true

		sb := sub.base()
		if sb.parentAgent != nil {
			return NewConfigError("agent %s already has a parent agent, current parent: %s, trying to add: %s",
				sub.Name(), sb.parentAgent.Name(), a.Name())
		}
	}
	for _, sub := range a.subAgents {
		sub.base().parentAgent = self
	}

	a.self = self
	a.logger = a.logger.With(slog.String("agent", a.Name()))

	return nil
}

func (a *BaseAgent) base() *BaseAgent { return a }

// AsLLMAgent implements [Agent].
func (a *BaseAgent) AsLLMAgent() (LLMAgent, bool) {
	return nil, false
}

// Name implements [Agent].
func (a *BaseAgent) Name() string {
	return a.Config.Name
}

// Description implements [Agent].
func (a *BaseAgent) Description() string {
	return a.Config.Description
}

// ParentAgent implements [Agent].
func (a *BaseAgent) ParentAgent() Agent {
	return a.parentAgent
}

// SubAgents implements [Agent].
func (a *BaseAgent) SubAgents() []Agent {
	return a.subAgents
}

// BeforeAgentCallbacks implements [Agent].
func (a *BaseAgent) BeforeAgentCallbacks() []AgentCallback {
	return a.beforeAgentCallbacks
}

// AfterAgentCallbacks implements [Agent].
func (a *BaseAgent) AfterAgentCallbacks() []AgentCallback {
	return a.afterAgentCallbacks
}

// Run implements [Agent].
func (a *BaseAgent) Run(ctx context.Context, parentContext *InvocationContext) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		if a.self == nil {
			yield(nil, NewConfigError("agent %s is not bound", a.Name()))
			return
		}

		ictx := parentContext.WithAgent(a.self)
		ctx, span := telemetry.StartSpan(ctx, telemetry.SpanAgentRun, a.Name(),
			attribute.String("invocation_id", ictx.InvocationID),
			attribute.String("branch", ictx.Branch),
		)
		var runErr error
		defer func() { telemetry.EndSpan(span, runErr) }()

		beforeEvent, err := a.handleBeforeAgentCallbacks(ctx, ictx)
		if err != nil {
			runErr = err
			yield(nil, err)
			return
		}
		if beforeEvent != nil {
			if !yield(beforeEvent, nil) {
				return
			}
		}
		if ictx.EndInvocation() {
			return
		}

		for event, err := range a.self.Execute(ctx, ictx) {
			if err != nil {
				runErr = err
				yield(nil, err)
				return
			}
			if !yield(event, nil) {
				return
			}
		}

		if ictx.EndInvocation() {
			return
		}

		afterEvent, err := a.handleAfterAgentCallbacks(ctx, ictx)
		if err != nil {
			runErr = err
			yield(nil, err)
			return
		}
		if afterEvent != nil {
			yield(afterEvent, nil)
		}
	}
}

// RootAgent implements [Agent].
func (a *BaseAgent) RootAgent() Agent {
	var root Agent = a.self
	for {
		parent := root.ParentAgent()
		if parent == nil {
			return root
		}
		root = parent
	}
}

// FindAgent implements [Agent].
func (a *BaseAgent) FindAgent(name string) Agent {
	if name == a.Config.Name {
		return a.self
	}
	return a.FindSubAgent(name)
}

// FindSubAgent implements [Agent].
func (a *BaseAgent) FindSubAgent(name string) Agent {
	for _, subAgent := range a.subAgents {
		if result := subAgent.FindAgent(name); result != nil {
			return result
		}
	}
	return nil
}

// handleBeforeAgentCallbacks runs the before agent callbacks until one returns content.
//
// Returned content ends the invocation.
func (a *BaseAgent) handleBeforeAgentCallbacks(ctx context.Context, ictx *InvocationContext) (*Event, error) {
	if len(a.beforeAgentCallbacks) == 0 {
		return nil, nil
	}

	cctx := NewCallbackContext(ictx)
	for _, callback := range a.beforeAgentCallbacks {
		content, err := callback(ctx, cctx)
		if err != nil {
			a.logger.ErrorContext(ctx, "before agent callback error", slog.Any("error", err))
			return nil, fmt.Errorf("before agent callback: %w", err)
		}
		if content != nil {
			ictx.SetEndInvocation(true)
			return a.callbackEvent(ictx, cctx).WithContent(content), nil
		}
	}

	if cctx.State().HasDelta() {
		return a.callbackEvent(ictx, cctx), nil
	}
	return nil, nil
}

// handleAfterAgentCallbacks runs the after agent callbacks until one returns content.
func (a *BaseAgent) handleAfterAgentCallbacks(ctx context.Context, ictx *InvocationContext) (*Event, error) {
	if len(a.afterAgentCallbacks) == 0 {
		return nil, nil
	}

	cctx := NewCallbackContext(ictx)
	for _, callback := range a.afterAgentCallbacks {
		content, err := callback(ctx, cctx)
		if err != nil {
			a.logger.ErrorContext(ctx, "after agent callback error", slog.Any("error", err))
			return nil, fmt.Errorf("after agent callback: %w", err)
		}
		if content != nil {
			return a.callbackEvent(ictx, cctx).WithContent(content), nil
		}
	}

	if cctx.State().HasDelta() {
		return a.callbackEvent(ictx, cctx), nil
	}
	return nil, nil
}

func (a *BaseAgent) callbackEvent(ictx *InvocationContext, cctx *CallbackContext) *Event {
	return NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(a.Name()).
		WithBranch(ictx.Branch).
		WithActions(cctx.EventActions())
}
