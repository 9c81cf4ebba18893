// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package types defines the data model and the extension points of the agent runtime.
//
// # Events and state
//
// An [Event] is one entry of a session's append-only log. Its [EventActions]
// declare side effects: state and artifact deltas, transfer and escalate
// signals, auth requests, compaction and rewind markers. [State] is a two
// layer map with committed values and pending deltas; keys prefixed with
// "app:", "user:" and "temp:" are routed to app, user and invocation scope.
//
// # Agents
//
// Every [Agent] embeds a [*BaseAgent] bound to the concrete agent:
//
//	a := &MyAgent{BaseAgent: types.NewBaseAgent("my_agent")}
//	if err := a.Bind(a); err != nil {
//		return nil, err
//	}
//
// Run wraps the agent's Execute with before and after agent callbacks and
// yields events as an [iter.Seq2]:
//
//	for event, err := range agent.Run(ctx, ictx) {
//		if err != nil {
//			return err
//		}
//		// handle event
//	}
//
// # Contexts
//
// An [InvocationContext] threads services, the session and run config through
// one invocation. Composite agents fork it; forks share the invocation id,
// session and LLM call budget. [ReadOnlyContext], [CallbackContext] and
// [ToolContext] are the views handed to instruction providers, callbacks and
// tools.
package types
