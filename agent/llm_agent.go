// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/go-json-experiment/json"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/flow/llmflow"
	"github.com/go-a2a/agentflow/model"
	"github.com/go-a2a/agentflow/types"
)

// LLMAgent represents an agent powered by a Large Language Model.
type LLMAgent struct {
	*types.BaseAgent

	baseOpts []types.Option

	// model is a [types.Model] or a model name resolved through registry.
	// Agents without a model inherit the model of the closest LLM ancestor.
	model     types.Model
	modelName string
	registry  *model.Registry

	instruction               string
	instructionProvider       types.InstructionProvider
	globalInstruction         string
	globalInstructionProvider types.InstructionProvider

	tools    []types.Tool
	toolsets []types.Toolset

	// generateContentConfig holds sampling and safety settings. Tools are
	// configured with WithTools and thinking with a planner.
	generateContentConfig *genai.GenerateContentConfig

	disallowTransferToParent bool
	disallowTransferToPeers  bool
	includeContents          types.IncludeContents

	// inputSchema is the input of the agent when used as a tool.
	inputSchema *genai.Schema

	// outputSchema constrains the reply of the agent. An agent with an output
	// schema can only reply; it has no tools and does not transfer.
	outputSchema *genai.Schema

	// outputKey is the session state key receiving the final reply.
	outputKey string

	preloadMemory bool
	planner       types.Planner
	codeExecutor  types.CodeExecutor

	beforeModelCallbacks []types.BeforeModelCallback
	afterModelCallbacks  []types.AfterModelCallback
	beforeToolCallbacks  []types.BeforeToolCallback
	afterToolCallbacks   []types.AfterToolCallback

	flow types.Flow
}

var _ types.LLMAgent = (*LLMAgent)(nil)

// LLMAgentOption configures an [LLMAgent].
type LLMAgentOption func(*LLMAgent)

// WithAgentOptions applies the options shared by every agent, such as the
// description, the sub-agents and the logger.
func WithAgentOptions(opts ...types.Option) LLMAgentOption {
	return func(a *LLMAgent) {
		a.baseOpts = append(a.baseOpts, opts...)
	}
}

// WithModel sets the model of the agent.
func WithModel(m types.Model) LLMAgentOption {
	return func(a *LLMAgent) {
		a.model = m
	}
}

// WithModelName sets the model of the agent by name. The model is created
// through registry on first use.
func WithModelName(name string, registry *model.Registry) LLMAgentOption {
	return func(a *LLMAgent) {
		a.modelName = name
		a.registry = registry
	}
}

// WithInstruction sets the instruction of the agent.
//
// The instruction is a template: {key} placeholders are replaced by session state values.
func WithInstruction(instruction string) LLMAgentOption {
	return func(a *LLMAgent) {
		a.instruction = instruction
		a.instructionProvider = nil
	}
}

// WithInstructionProvider sets a function building the instruction of the agent.
// Provided instructions are used verbatim.
func WithInstructionProvider(provider types.InstructionProvider) LLMAgentOption {
	return func(a *LLMAgent) {
		a.instructionProvider = provider
		a.instruction = ""
	}
}

// WithGlobalInstruction sets the instruction shared by every agent of the tree.
// It only takes effect on the root agent.
func WithGlobalInstruction(instruction string) LLMAgentOption {
	return func(a *LLMAgent) {
		a.globalInstruction = instruction
		a.globalInstructionProvider = nil
	}
}

// WithGlobalInstructionProvider sets a function building the global instruction.
func WithGlobalInstructionProvider(provider types.InstructionProvider) LLMAgentOption {
	return func(a *LLMAgent) {
		a.globalInstructionProvider = provider
		a.globalInstruction = ""
	}
}

// WithTools adds tools to the agent.
func WithTools(tools ...types.Tool) LLMAgentOption {
	return func(a *LLMAgent) {
		a.tools = append(a.tools, tools...)
	}
}

// WithToolsets adds toolsets to the agent.
func WithToolsets(toolsets ...types.Toolset) LLMAgentOption {
	return func(a *LLMAgent) {
		a.toolsets = append(a.toolsets, toolsets...)
	}
}

// WithGenerateContentConfig sets the [genai.GenerateContentConfig] of the agent.
func WithGenerateContentConfig(config *genai.GenerateContentConfig) LLMAgentOption {
	return func(a *LLMAgent) {
		a.generateContentConfig = config
	}
}

// WithDisallowTransferToParent prevents the model from transferring to the parent agent.
func WithDisallowTransferToParent() LLMAgentOption {
	return func(a *LLMAgent) {
		a.disallowTransferToParent = true
	}
}

// WithDisallowTransferToPeers prevents the model from transferring to the peer agents.
func WithDisallowTransferToPeers() LLMAgentOption {
	return func(a *LLMAgent) {
		a.disallowTransferToPeers = true
	}
}

// WithIncludeContents sets whether the conversation history is sent to the model.
func WithIncludeContents(includeContents types.IncludeContents) LLMAgentOption {
	return func(a *LLMAgent) {
		a.includeContents = includeContents
	}
}

// WithInputSchema sets the input schema used when the agent is wrapped as a tool.
func WithInputSchema(schema *genai.Schema) LLMAgentOption {
	return func(a *LLMAgent) {
		a.inputSchema = schema
	}
}

// WithOutputSchema sets the schema the final reply must match.
func WithOutputSchema(schema *genai.Schema) LLMAgentOption {
	return func(a *LLMAgent) {
		a.outputSchema = schema
	}
}

// WithOutputKey stores the final reply of the agent in the session state under key.
func WithOutputKey(key string) LLMAgentOption {
	return func(a *LLMAgent) {
		a.outputKey = key
	}
}

// WithPreloadMemory injects the memories relevant to the user query into the instruction.
func WithPreloadMemory() LLMAgentOption {
	return func(a *LLMAgent) {
		a.preloadMemory = true
	}
}

// WithPlanner sets the planner of the agent.
func WithPlanner(planner types.Planner) LLMAgentOption {
	return func(a *LLMAgent) {
		a.planner = planner
	}
}

// WithCodeExecutor sets the executor of the code blocks found in model responses.
func WithCodeExecutor(executor types.CodeExecutor) LLMAgentOption {
	return func(a *LLMAgent) {
		a.codeExecutor = executor
	}
}

// WithBeforeModelCallbacks appends callbacks invoked before each model call.
func WithBeforeModelCallbacks(callbacks ...types.BeforeModelCallback) LLMAgentOption {
	return func(a *LLMAgent) {
		a.beforeModelCallbacks = append(a.beforeModelCallbacks, callbacks...)
	}
}

// WithAfterModelCallbacks appends callbacks invoked after each model call.
func WithAfterModelCallbacks(callbacks ...types.AfterModelCallback) LLMAgentOption {
	return func(a *LLMAgent) {
		a.afterModelCallbacks = append(a.afterModelCallbacks, callbacks...)
	}
}

// WithBeforeToolCallbacks appends callbacks invoked before each tool call.
func WithBeforeToolCallbacks(callbacks ...types.BeforeToolCallback) LLMAgentOption {
	return func(a *LLMAgent) {
		a.beforeToolCallbacks = append(a.beforeToolCallbacks, callbacks...)
	}
}

// WithAfterToolCallbacks appends callbacks invoked after each tool call.
func WithAfterToolCallbacks(callbacks ...types.AfterToolCallback) LLMAgentOption {
	return func(a *LLMAgent) {
		a.afterToolCallbacks = append(a.afterToolCallbacks, callbacks...)
	}
}

// WithFlow replaces the flow of the agent.
func WithFlow(flow types.Flow) LLMAgentOption {
	return func(a *LLMAgent) {
		a.flow = flow
	}
}

// NewLLMAgent creates a new [LLMAgent] with the given name and options.
//
// It fails with a [types.ConfigError] on an invalid name, a sub-agent which
// already has a parent, or an output schema combined with tools or sub-agents.
func NewLLMAgent(ctx context.Context, name string, opts ...LLMAgentOption) (*LLMAgent, error) {
	a := &LLMAgent{
		includeContents: types.IncludeContentsDefault,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.BaseAgent = types.NewBaseAgent(name, a.baseOpts...)

	if err := a.validateConfig(ctx); err != nil {
		return nil, err
	}
	if err := a.Bind(a); err != nil {
		return nil, err
	}

	if a.flow == nil {
		a.flow = a.defaultFlow()
	}

	return a, nil
}

func (a *LLMAgent) validateConfig(ctx context.Context) error {
	if a.outputSchema == nil {
		return nil
	}

	if len(a.tools) > 0 || len(a.toolsets) > 0 {
		return types.NewConfigError("agent %s: tools must be empty when an output schema is set", a.Name())
	}
	if len(a.SubAgents()) > 0 {
		return types.NewConfigError("agent %s: sub-agents must be empty when an output schema is set", a.Name())
	}
	if !a.disallowTransferToParent || !a.disallowTransferToPeers {
		a.Logger().DebugContext(ctx, "output schema disables agent transfer", slog.String("agent", a.Name()))
		a.disallowTransferToParent = true
		a.disallowTransferToPeers = true
	}

	return nil
}

func (a *LLMAgent) defaultFlow() types.Flow {
	if a.disallowTransferToParent && a.disallowTransferToPeers && len(a.SubAgents()) == 0 {
		flow := llmflow.NewSingleFlow()
		flow.WithLogger(a.Logger())
		return flow
	}
	flow := llmflow.NewAutoFlow()
	flow.WithLogger(a.Logger())
	return flow
}

// AsLLMAgent implements [types.Agent].
func (a *LLMAgent) AsLLMAgent() (types.LLMAgent, bool) {
	return a, true
}

// CanonicalModel implements [types.LLMAgent].
func (a *LLMAgent) CanonicalModel(ctx context.Context) (types.Model, error) {
	if a.model != nil {
		return a.model, nil
	}
	if a.modelName != "" {
		if a.registry == nil {
			return nil, types.NewConfigError("agent %s: model %s has no registry", a.Name(), a.modelName)
		}
		m, err := a.registry.NewLLM(ctx, a.modelName)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name(), err)
		}
		a.model = m
		return m, nil
	}

	for ancestor := a.ParentAgent(); ancestor != nil; ancestor = ancestor.ParentAgent() {
		if llmAgent, ok := ancestor.AsLLMAgent(); ok {
			return llmAgent.CanonicalModel(ctx)
		}
	}

	return nil, types.NewConfigError("no model found for agent %s", a.Name())
}

// CanonicalInstruction implements [types.LLMAgent].
func (a *LLMAgent) CanonicalInstruction(ctx context.Context, rctx *types.ReadOnlyContext) (string, bool, error) {
	if a.instructionProvider != nil {
		si, err := a.instructionProvider(ctx, rctx)
		return si, true, err
	}
	return a.instruction, false, nil
}

// CanonicalGlobalInstruction implements [types.LLMAgent].
func (a *LLMAgent) CanonicalGlobalInstruction(ctx context.Context, rctx *types.ReadOnlyContext) (string, bool, error) {
	if a.globalInstructionProvider != nil {
		si, err := a.globalInstructionProvider(ctx, rctx)
		return si, true, err
	}
	return a.globalInstruction, false, nil
}

// CanonicalTools implements [types.LLMAgent].
func (a *LLMAgent) CanonicalTools(ctx context.Context, rctx *types.ReadOnlyContext) ([]types.Tool, error) {
	tools := make([]types.Tool, 0, len(a.tools))
	tools = append(tools, a.tools...)
	for _, toolset := range a.toolsets {
		ts, err := toolset.GetTools(ctx, rctx)
		if err != nil {
			return nil, fmt.Errorf("get tools: %w", err)
		}
		tools = append(tools, ts...)
	}
	return tools, nil
}

// GenerateContentConfig implements [types.LLMAgent].
func (a *LLMAgent) GenerateContentConfig() *genai.GenerateContentConfig {
	return a.generateContentConfig
}

// DisallowTransferToParent implements [types.LLMAgent].
func (a *LLMAgent) DisallowTransferToParent() bool {
	return a.disallowTransferToParent
}

// DisallowTransferToPeers implements [types.LLMAgent].
func (a *LLMAgent) DisallowTransferToPeers() bool {
	return a.disallowTransferToPeers
}

// IncludeContents implements [types.LLMAgent].
func (a *LLMAgent) IncludeContents() types.IncludeContents {
	return a.includeContents
}

// InputSchema implements [types.LLMAgent].
func (a *LLMAgent) InputSchema() *genai.Schema {
	return a.inputSchema
}

// OutputSchema implements [types.LLMAgent].
func (a *LLMAgent) OutputSchema() *genai.Schema {
	return a.outputSchema
}

// OutputKey implements [types.LLMAgent].
func (a *LLMAgent) OutputKey() string {
	return a.outputKey
}

// PreloadMemory implements [types.LLMAgent].
func (a *LLMAgent) PreloadMemory() bool {
	return a.preloadMemory
}

// Planner implements [types.LLMAgent].
func (a *LLMAgent) Planner() types.Planner {
	return a.planner
}

// CodeExecutor implements [types.LLMAgent].
func (a *LLMAgent) CodeExecutor() types.CodeExecutor {
	return a.codeExecutor
}

// BeforeModelCallbacks implements [types.LLMAgent].
func (a *LLMAgent) BeforeModelCallbacks() []types.BeforeModelCallback {
	return a.beforeModelCallbacks
}

// AfterModelCallbacks implements [types.LLMAgent].
func (a *LLMAgent) AfterModelCallbacks() []types.AfterModelCallback {
	return a.afterModelCallbacks
}

// BeforeToolCallbacks implements [types.LLMAgent].
func (a *LLMAgent) BeforeToolCallbacks() []types.BeforeToolCallback {
	return a.beforeToolCallbacks
}

// AfterToolCallbacks implements [types.LLMAgent].
func (a *LLMAgent) AfterToolCallbacks() []types.AfterToolCallback {
	return a.afterToolCallbacks
}

// Execute implements [types.Agent].
//
// Errors raised inside the flow are returned as [*types.AgentError] naming
// this agent. Budget, protocol and context errors are returned as is.
func (a *LLMAgent) Execute(ctx context.Context, ictx *types.InvocationContext) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		for event, err := range a.flow.Run(ctx, ictx) {
			if err != nil {
				yield(nil, a.wrapError(ctx, ictx, err))
				return
			}

			a.saveOutputToState(event)
			if !yield(event, nil) {
				return
			}
		}
	}
}

func (a *LLMAgent) wrapError(ctx context.Context, ictx *types.InvocationContext, err error) error {
	var agentErr *types.AgentError
	if types.IsAbort(err) || errors.As(err, &agentErr) {
		return err
	}
	a.Logger().ErrorContext(ctx, "agent execution failed",
		slog.String("invocation_id", ictx.InvocationID),
		slog.Any("error", err),
	)
	return &types.AgentError{Agent: a.Name(), Branch: ictx.Branch, Err: err}
}

// saveOutputToState records the final reply of the agent under the output key.
// With an output schema the reply is stored as its decoded JSON value.
func (a *LLMAgent) saveOutputToState(event *types.Event) {
	if a.outputKey == "" || event.Author != a.Name() || !event.IsFinalResponse() || event.IsError() || !event.HasContent() {
		return
	}

	var sb strings.Builder
	for _, part := range event.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return
	}

	var value any = text
	if a.outputSchema != nil {
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			value = decoded
		}
	}

	if event.Actions == nil {
		event.Actions = types.NewEventActions()
	}
	if event.Actions.StateDelta == nil {
		event.Actions.StateDelta = make(map[string]any)
	}
	event.Actions.StateDelta[a.outputKey] = value
}
