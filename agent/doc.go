// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent provides the agents of an agentflow application.
//
// An [LLMAgent] is a leaf agent: each of its runs drives the LLM flow until the
// model gives a final response, transfers to another agent or the invocation
// ends. Composite agents sequence the runs of their sub-agents:
//
//   - [SequentialAgent] runs them one after another.
//   - [ParallelAgent] runs them concurrently, each in its own branch.
//   - [LoopAgent] repeats them until one escalates or the iteration limit is hit.
//   - [GraphAgent] walks a graph of agents along conditional edges.
//
// Agents form a tree. A sub-agent has exactly one parent, which is set when the
// parent is constructed:
//
//	summarizer, err := agent.NewLLMAgent(ctx, "summarizer",
//		agent.WithModel(m),
//		agent.WithInstruction("Summarize {document}."),
//		agent.WithOutputKey("summary"),
//	)
//	if err != nil {
//		return err
//	}
//	pipeline, err := agent.NewSequentialAgent("pipeline",
//		types.WithSubAgents(fetcher, summarizer),
//	)
//
// Every agent run yields its events as an iter.Seq2[*types.Event, error].
package agent
