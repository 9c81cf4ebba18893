// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"iter"
	"log/slog"

	"google.golang.org/genai"
)

// AgentCallback represents a callback function that can be invoked before or after an agent runs.
//
// A non-nil content ends the callback chain. Before the run it replaces the
// agent's execution, after the run it is emitted as an extra event.
type AgentCallback func(ctx context.Context, cctx *CallbackContext) (*genai.Content, error)

// Agent represents an all agents in the agent tree.
//
// The set of implementations is closed: every agent embeds a [*BaseAgent]
// bound to itself with [BaseAgent.Bind].
type Agent interface {
	// Name returns the agent's name.
	//
	// Agent name must be a Go identifier and unique within the agent tree.
	// Agent name cannot be "user", since it's reserved for end-user's input.
	Name() string

	// Description returns the description about the agent's capability.
	//
	// The model uses this to determine whether to delegate control to the agent.
	// One-line description is enough and preferred.
	Description() string

	// ParentAgent is the parent agent of this agent.
	//
	// An agent can only be added as sub-agent once.
	ParentAgent() Agent

	// SubAgents returns the sub-agents of this agent.
	SubAgents() []Agent

	// BeforeAgentCallbacks returns the list of [AgentCallback] to be invoked before the agent run.
	BeforeAgentCallbacks() []AgentCallback

	// AfterAgentCallbacks returns the list of [AgentCallback] to be invoked after the agent run.
	AfterAgentCallbacks() []AgentCallback

	// Execute is the core logic to run this agent.
	Execute(ctx context.Context, ictx *InvocationContext) iter.Seq2[*Event, error]

	// Run is the entry method to run an agent.
	//
	// Run wraps Execute with the agent callbacks.
	Run(ctx context.Context, parentContext *InvocationContext) iter.Seq2[*Event, error]

	// RootAgent returns the root agent of this agent.
	RootAgent() Agent

	// FindAgent finds the agent with the given name in this agent and its descendants.
	FindAgent(name string) Agent

	// FindSubAgent finds the agent with the given name in this agent's descendants.
	FindSubAgent(name string) Agent

	// AsLLMAgent reports whether this agent is an [LLMAgent].
	AsLLMAgent() (LLMAgent, bool)

	// Logger returns the logger of the agent.
	Logger() *slog.Logger

	base() *BaseAgent
}

// InstructionProvider is a function that provides instructions based on context.
//
// Instructions returned by a provider are used verbatim without template substitution.
type InstructionProvider func(ctx context.Context, rctx *ReadOnlyContext) (string, error)

// BeforeModelCallback is called before sending a request to the model.
//
// A non-nil response skips the model call.
type BeforeModelCallback func(ctx context.Context, cctx *CallbackContext, request *LLMRequest) (*LLMResponse, error)

// AfterModelCallback is called after receiving a response from the model.
//
// A non-nil response replaces the model response.
type AfterModelCallback func(ctx context.Context, cctx *CallbackContext, response *LLMResponse) (*LLMResponse, error)

// BeforeToolCallback is called before executing a tool.
//
// A non-nil result skips the tool execution.
type BeforeToolCallback func(ctx context.Context, tool Tool, args map[string]any, toolCtx *ToolContext) (map[string]any, error)

// AfterToolCallback is called after executing a tool.
//
// A non-nil result replaces the tool response.
type AfterToolCallback func(ctx context.Context, tool Tool, args map[string]any, toolCtx *ToolContext, toolResponse map[string]any) (map[string]any, error)

// IncludeContents whether to include contents in the model request.
type IncludeContents string

const (
	IncludeContentsDefault IncludeContents = "default"
	IncludeContentsNone    IncludeContents = "none"
)

// LLMAgent is an interface for agents backed by an LLM.
type LLMAgent interface {
	Agent

	// CanonicalModel returns the resolved model.
	//
	// Agents without a model inherit the model of the closest LLM ancestor.
	CanonicalModel(ctx context.Context) (Model, error)

	// CanonicalInstruction returns the agent instruction and whether it must bypass
	// state injection.
	CanonicalInstruction(ctx context.Context, rctx *ReadOnlyContext) (string, bool, error)

	// CanonicalGlobalInstruction returns the global instruction and whether it must
	// bypass state injection.
	CanonicalGlobalInstruction(ctx context.Context, rctx *ReadOnlyContext) (string, bool, error)

	// CanonicalTools returns the tools of the agent with toolsets expanded.
	CanonicalTools(ctx context.Context, rctx *ReadOnlyContext) ([]Tool, error)

	// GenerateContentConfig returns the [*genai.GenerateContentConfig] for [LLMAgent] agent.
	GenerateContentConfig() *genai.GenerateContentConfig

	// DisallowTransferToParent reports whether LLM-controlled transfer to the parent agent is disabled.
	DisallowTransferToParent() bool

	// DisallowTransferToPeers reports whether LLM-controlled transfer to the peer agents is disabled.
	DisallowTransferToPeers() bool

	// IncludeContents returns the mode of include contents in the model request.
	IncludeContents() IncludeContents

	// InputSchema returns the structured input.
	InputSchema() *genai.Schema

	// OutputSchema returns the structured output.
	OutputSchema() *genai.Schema

	// OutputKey returns the key in session state to store the output of the agent.
	OutputKey() string

	// PreloadMemory reports whether memories relevant to the user query are
	// injected into the system instruction.
	PreloadMemory() bool

	// Planner returns the planner of the agent, or nil.
	Planner() Planner

	// CodeExecutor returns the code executor for the agent, or nil.
	CodeExecutor() CodeExecutor

	// BeforeModelCallbacks returns the callbacks invoked before each model call.
	BeforeModelCallbacks() []BeforeModelCallback

	// AfterModelCallbacks returns the callbacks invoked after each model call.
	AfterModelCallbacks() []AfterModelCallback

	// BeforeToolCallbacks returns the callbacks invoked before each tool call.
	BeforeToolCallbacks() []BeforeToolCallback

	// AfterToolCallbacks returns the callbacks invoked after each tool call.
	AfterToolCallbacks() []AfterToolCallback
}
