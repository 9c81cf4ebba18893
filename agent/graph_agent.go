// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"iter"
	"log/slog"
	"slices"

	"github.com/go-a2a/agentflow/types"
)

// DefaultGraphMaxSteps is the step limit of a [GraphAgent] without an explicit one.
const DefaultGraphMaxSteps = 25

// EdgeCondition reports whether an edge can be followed, given the last event
// of the node the edge leaves.
type EdgeCondition func(last *types.Event, ictx *types.InvocationContext) bool

// GraphEdge connects a node to its Target node.
type GraphEdge struct {
	Target string

	// Condition gates the edge. A nil Condition always holds.
	Condition EdgeCondition
}

// GraphNode is a named agent of a graph.
type GraphNode struct {
	Name  string
	Agent types.Agent

	// Edges are evaluated in order; the first satisfied edge is followed.
	Edges []GraphEdge
}

// GraphConfig describes the graph run by a [GraphAgent].
type GraphConfig struct {
	Nodes []GraphNode

	// Root is the name of the first node to run.
	Root string

	// MaxSteps bounds the number of node runs. Zero means [DefaultGraphMaxSteps].
	MaxSteps int
}

// GraphAgent runs agents as the nodes of a directed graph.
//
// Starting at the root, each node runs to completion and the first edge whose
// condition holds selects the next node. The graph ends at a node without a
// satisfied edge, on escalation, or after MaxSteps node runs.
type GraphAgent struct {
	*types.BaseAgent

	nodes    map[string]*GraphNode
	root     string
	maxSteps int
}

var _ types.Agent = (*GraphAgent)(nil)

// NewGraphAgent creates a new [GraphAgent].
//
// The node agents become the sub-agents of the graph agent.
func NewGraphAgent(name string, config GraphConfig, opts ...types.Option) (*GraphAgent, error) {
	nodes := make(map[string]*GraphNode, len(config.Nodes))
	var subAgents []types.Agent
	for i := range config.Nodes {
		node := &config.Nodes[i]
		if node.Name == "" {
			return nil, types.NewConfigError("graph %s: node %d has no name", name, i)
		}
		if node.Agent == nil {
			return nil, types.NewConfigError("graph %s: node %s has no agent", name, node.Name)
		}
		if _, ok := nodes[node.Name]; ok {
			return nil, types.NewConfigError("graph %s: duplicate node %s", name, node.Name)
		}
		nodes[node.Name] = node
		if !slices.Contains(subAgents, node.Agent) {
			subAgents = append(subAgents, node.Agent)
		}
	}

	if config.Root == "" {
		return nil, types.NewConfigError("graph %s: root node is not set", name)
	}
	if _, ok := nodes[config.Root]; !ok {
		return nil, types.NewConfigError("graph %s: root node %s is not defined", name, config.Root)
	}
	for _, node := range nodes {
		for _, edge := range node.Edges {
			if _, ok := nodes[edge.Target]; !ok {
				return nil, types.NewConfigError("graph %s: edge %s -> %s targets an undefined node", name, node.Name, edge.Target)
			}
		}
	}

	maxSteps := config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultGraphMaxSteps
	}

	opts = append(opts, types.WithSubAgents(subAgents...))
	a := &GraphAgent{
		BaseAgent: types.NewBaseAgent(name, opts...),
		nodes:     nodes,
		root:      config.Root,
		maxSteps:  maxSteps,
	}
	if err := a.Bind(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Execute implements [types.Agent].
func (a *GraphAgent) Execute(ctx context.Context, ictx *types.InvocationContext) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		current := a.root
		for step := range a.maxSteps {
			node := a.nodes[current]

			var last *types.Event
			for event, err := range node.Agent.Run(ctx, ictx) {
				if !yield(event, err) || err != nil {
					return
				}
				last = event
				if event.Actions != nil && event.Actions.Escalate {
					return
				}
			}
			if ictx.EndInvocation() {
				return
			}

			next, ok := a.nextNode(node, last, ictx)
			if !ok {
				return
			}
			a.Logger().DebugContext(ctx, "graph transition",
				slog.String("agent", a.Name()),
				slog.String("from", current),
				slog.String("to", next),
				slog.Int("step", step+1),
			)
			current = next
		}

		a.Logger().WarnContext(ctx, "graph halted at max steps",
			slog.String("agent", a.Name()),
			slog.Int("max_steps", a.maxSteps),
			slog.String("next", current),
		)
	}
}

func (a *GraphAgent) nextNode(node *GraphNode, last *types.Event, ictx *types.InvocationContext) (string, bool) {
	for _, edge := range node.Edges {
		if edge.Condition == nil || edge.Condition(last, ictx) {
			return edge.Target, true
		}
	}
	return "", false
}
