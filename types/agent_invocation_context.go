// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// InvocationCostManager keeps track of the cost of an invocation.
//
// It is shared by every context forked from the same invocation.
type InvocationCostManager struct {
	mu       sync.Mutex
	llmCalls int
}

// IncrementAndEnforceLLMCallsLimit increments the LLM call counter and enforces the limit.
func (mgr *InvocationCostManager) IncrementAndEnforceLLMCallsLimit(runConfig *RunConfig) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	mgr.llmCalls++
	if runConfig != nil && runConfig.MaxLLMCalls > 0 && mgr.llmCalls > runConfig.MaxLLMCalls {
		return NewLLMCallsLimitExceededError("max number of llm calls limit of %d exceeded", runConfig.MaxLLMCalls)
	}
	return nil
}

// LLMCalls returns the number of LLM calls made so far.
func (mgr *InvocationCostManager) LLMCalls() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.llmCalls
}

// tempState holds temp-scoped state for the duration of an invocation.
type tempState struct {
	mu     sync.RWMutex
	values map[string]any
}

// InvocationContext represents the data of a single invocation of an agent.
//
// An invocation starts with a user message and ends with a final response. It
// can contain one or multiple agent calls, and an LLM agent call can contain
// one or multiple steps. A step calls the LLM once and then the requested tools.
//
//	┌─────────────────────── invocation ──────────────────────────┐
//	┌──────────── llm_agent_call_1 ────────────┐ ┌─ agent_call_2 ─┐
//	┌──── step_1 ────────┐ ┌───── step_2 ──────┐
//	[call_llm] [call_tool] [call_llm] [transfer]
//
// Contexts are forked, never shared mutably: forks keep the invocation id,
// session, services and cost counter, and hold their own agent and branch.
type InvocationContext struct {
	ArtifactService ArtifactService
	SessionService  SessionService
	MemoryService   MemoryService

	// InvocationID is the id of this invocation context. Readonly.
	InvocationID string

	// Branch is the dot separated agent path used to filter the history a
	// sub-agent can see. It is a filtering label, not an isolation mechanism.
	Branch string

	// Agent is the current agent of this invocation context. Readonly.
	Agent Agent

	// UserContent is the user content that started this invocation. Readonly.
	UserContent *genai.Content

	// Session is the current session of this invocation context.
	Session Session

	// RunConfig is the configuration of this run.
	RunConfig *RunConfig

	endInvocation *atomic.Bool
	costManager   *InvocationCostManager
	temp          *tempState
}

// InvocationContextOption is a function that modifies the [InvocationContext].
type InvocationContextOption func(*InvocationContext)

// WithArtifactService sets the artifact service of the [InvocationContext].
func WithArtifactService(svc ArtifactService) InvocationContextOption {
	return func(ictx *InvocationContext) {
		ictx.ArtifactService = svc
	}
}

// WithMemoryService sets the memory service of the [InvocationContext].
func WithMemoryService(svc MemoryService) InvocationContextOption {
	return func(ictx *InvocationContext) {
		ictx.MemoryService = svc
	}
}

// WithInvocationID overrides the generated invocation id.
func WithInvocationID(id string) InvocationContextOption {
	return func(ictx *InvocationContext) {
		ictx.InvocationID = id
	}
}

// WithBranch sets the branch of the [InvocationContext].
func WithBranch(branch string) InvocationContextOption {
	return func(ictx *InvocationContext) {
		ictx.Branch = branch
	}
}

// WithUserContent sets the user content of the [InvocationContext].
func WithUserContent(content *genai.Content) InvocationContextOption {
	return func(ictx *InvocationContext) {
		ictx.UserContent = content
	}
}

// WithRunConfig sets the run config of the [InvocationContext].
func WithRunConfig(config *RunConfig) InvocationContextOption {
	return func(ictx *InvocationContext) {
		ictx.RunConfig = config
	}
}

// NewInvocationContext creates a new [InvocationContext].
func NewInvocationContext(agent Agent, session Session, sessionSvc SessionService, opts ...InvocationContextOption) *InvocationContext {
	ictx := &InvocationContext{
		InvocationID:   NewInvocationContextID(),
		Agent:          agent,
		Session:        session,
		SessionService: sessionSvc,
		RunConfig:      NewRunConfig(),
		endInvocation:  new(atomic.Bool),
		costManager:    &InvocationCostManager{},
		temp:           &tempState{values: make(map[string]any)},
	}
	for _, opt := range opts {
		opt(ictx)
	}
	if ictx.RunConfig == nil {
		ictx.RunConfig = NewRunConfig()
	}

	return ictx
}

// WithAgent returns a fork of ictx whose current agent is agent.
//
// The fork shares the end-invocation flag with ictx.
func (ictx *InvocationContext) WithAgent(agent Agent) *InvocationContext {
	c := *ictx
	c.Agent = agent
	return &c
}

// NewBranchContext returns a fork of ictx for agent running in its own branch.
//
// The branch is extended with the agent name and the fork gets its own
// end-invocation flag so ending one branch does not stop its siblings.
func (ictx *InvocationContext) NewBranchContext(agent Agent, parentName string) *InvocationContext {
	c := *ictx
	c.Agent = agent
	if c.Branch != "" {
		c.Branch = c.Branch + "." + parentName
	} else {
		c.Branch = parentName
	}
	c.Branch += "." + agent.Name()
	c.endInvocation = new(atomic.Bool)
	return &c
}

// IncrementLLMCallCount tracks number of llm calls made.
func (ictx *InvocationContext) IncrementLLMCallCount() error {
	return ictx.costManager.IncrementAndEnforceLLMCallsLimit(ictx.RunConfig)
}

// LLMCalls returns the number of LLM calls made in this invocation.
func (ictx *InvocationContext) LLMCalls() int {
	return ictx.costManager.LLMCalls()
}

// EndInvocation reports whether the invocation was ended by a callback or a tool.
func (ictx *InvocationContext) EndInvocation() bool {
	return ictx.endInvocation.Load()
}

// SetEndInvocation ends the invocation for this context and the forks sharing its flag.
func (ictx *InvocationContext) SetEndInvocation(end bool) {
	ictx.endInvocation.Store(end)
}

// AppName returns the application name of the session.
func (ictx *InvocationContext) AppName() string {
	return ictx.Session.AppName()
}

// UserID returns the user id of the session.
func (ictx *InvocationContext) UserID() string {
	return ictx.Session.UserID()
}

// RecordTempState keeps the temp-scoped keys of delta for the rest of the invocation.
func (ictx *InvocationContext) RecordTempState(delta map[string]any) {
	t := ictx.temp
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, v := range delta {
		if len(k) < len(TempPrefix) || k[:len(TempPrefix)] != TempPrefix {
			continue
		}
		if v == nil {
			delete(t.values, k)
			continue
		}
		t.values[k] = v
	}
}

// State returns the session state merged with the invocation's temp state.
func (ictx *InvocationContext) State() map[string]any {
	state := ictx.Session.State()
	if state == nil {
		state = make(map[string]any)
	}

	ictx.temp.mu.RLock()
	maps.Copy(state, ictx.temp.values)
	ictx.temp.mu.RUnlock()

	return state
}

// NewInvocationContextID generates a new invocation context ID.
func NewInvocationContextID() string {
	return `e-` + uuid.NewString()
}
