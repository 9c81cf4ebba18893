// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/go-a2a/agentflow/internal/telemetry"
	"github.com/go-a2a/agentflow/internal/xiter"
	"github.com/go-a2a/agentflow/types"
)

// LLMFlow represents a base flow that calls the LLM in a loop until a final response is generated.
//
// This flow ends when it transfer to another agent.
type LLMFlow struct {
	RequestProcessors  []types.LLMRequestProcessor
	ResponseProcessors []types.LLMResponseProcessor
	Logger             *slog.Logger
}

var _ types.Flow = (*LLMFlow)(nil)

// WithLogger sets the logger of the flow.
func (f *LLMFlow) WithLogger(logger *slog.Logger) *LLMFlow {
	f.Logger = logger.With(slog.String("flow", "LLMFlow"))
	return f
}

// WithRequestProcessors adds request processors to the [LLMFlow].
func (f *LLMFlow) WithRequestProcessors(processors ...types.LLMRequestProcessor) *LLMFlow {
	f.RequestProcessors = append(f.RequestProcessors, processors...)
	return f
}

// WithResponseProcessors adds response processors to the [LLMFlow].
func (f *LLMFlow) WithResponseProcessors(processors ...types.LLMResponseProcessor) *LLMFlow {
	f.ResponseProcessors = append(f.ResponseProcessors, processors...)
	return f
}

// NewLLMFlow creates a new [LLMFlow] without processors.
func NewLLMFlow() *LLMFlow {
	return &LLMFlow{
		Logger: slog.Default().With(slog.String("flow", "LLMFlow")),
	}
}

// Run implements [types.Flow].
//
// Steps run until the last event of a step is a final response or the
// invocation ends. A step whose last event is partial fails with a
// [*types.TruncatedResponseError].
func (f *LLMFlow) Run(ctx context.Context, ictx *types.InvocationContext) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		for {
			var lastEvent *types.Event
			for event, err := range f.runOneStep(ctx, ictx) {
				if err != nil {
					yield(nil, err)
					return
				}
				lastEvent = event
				if !yield(event, nil) {
					return
				}
			}

			switch {
			case lastEvent == nil:
				return
			case lastEvent.IsPartial():
				yield(nil, &types.TruncatedResponseError{
					Author:       lastEvent.Author,
					FinishReason: string(lastEvent.FinishReason),
				})
				return
			case lastEvent.IsFinalResponse(), ictx.EndInvocation():
				return
			}

			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// runOneStep runs one step: one LLM call followed by the requested tools.
func (f *LLMFlow) runOneStep(ctx context.Context, ictx *types.InvocationContext) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			yield(nil, fmt.Errorf("agent %s is not an LLM agent", ictx.Agent.Name()))
			return
		}

		request := types.NewLLMRequest(nil)
		for event, err := range f.preprocess(ctx, ictx, llmAgent, request) {
			if err != nil {
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

		modelResponseEvent := types.NewEvent().
			WithInvocationID(ictx.InvocationID).
			WithAuthor(ictx.Agent.Name()).
			WithBranch(ictx.Branch)

		for response, err := range f.callLLM(ctx, ictx, llmAgent, request, modelResponseEvent) {
			if err != nil {
				yield(nil, err)
				return
			}
			for event, err := range f.postprocess(ctx, ictx, request, response, modelResponseEvent) {
				if err != nil {
					yield(nil, err)
					return
				}
				// every event of the step gets its own id and timestamp
				modelResponseEvent.ID = types.NewEventID()
				modelResponseEvent.Timestamp = types.Now()
				if !yield(event, nil) {
					return
				}
			}
		}
	}
}

// preprocess runs the request processors, then lets every tool adjust the request.
func (f *LLMFlow) preprocess(ctx context.Context, ictx *types.InvocationContext, llmAgent types.LLMAgent, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		for _, processor := range f.RequestProcessors {
			for event, err := range processor.Run(ctx, ictx, request) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(event, nil) {
					return
				}
			}
		}

		tools, err := llmAgent.CanonicalTools(ctx, types.NewReadOnlyContext(ictx))
		if err != nil {
			yield(nil, fmt.Errorf("resolve tools of %s: %w", llmAgent.Name(), err))
			return
		}
		for _, tool := range tools {
			toolCtx := types.NewToolContext(ictx, "", nil)
			if err := tool.ProcessLLMRequest(ctx, toolCtx, request); err != nil {
				yield(nil, fmt.Errorf("tool %s: process llm request: %w", tool.Name(), err))
				return
			}
		}
	}
}

// callLLM calls the model, wrapped by the before and after model callbacks.
func (f *LLMFlow) callLLM(ctx context.Context, ictx *types.InvocationContext, llmAgent types.LLMAgent, request *types.LLMRequest, modelResponseEvent *types.Event) iter.Seq2[*types.LLMResponse, error] {
	return func(yield func(*types.LLMResponse, error) bool) {
		response, err := f.handleBeforeModelCallback(ctx, ictx, llmAgent, request, modelResponseEvent)
		if err != nil {
			yield(nil, err)
			return
		}
		if response != nil {
			yield(response, nil)
			return
		}

		// the counter fails closed once the budget is spent
		if err := ictx.IncrementLLMCallCount(); err != nil {
			yield(nil, err)
			return
		}
		if limiter := ictx.RunConfig.LLMRateLimiter; limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				yield(nil, fmt.Errorf("wait for llm rate limiter: %w", err))
				return
			}
		}
		request.DedupeFunctionDeclarations()

		llm, err := llmAgent.CanonicalModel(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		if request.Model == "" {
			request.Model = llm.Name()
		}

		ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCallLLM, "",
			attribute.String("invocation_id", ictx.InvocationID),
			attribute.String("agent", llmAgent.Name()),
			attribute.String("model", request.Model),
		)
		var callErr error
		defer func() { telemetry.EndSpan(span, callErr) }()
		telemetry.FromContext(ctx).LLMCall(llmAgent.Name(), request.Model)

		f.Logger.DebugContext(ctx, "call llm",
			slog.String("agent", llmAgent.Name()),
			slog.String("model", request.Model),
			slog.Int("contents", len(request.Contents)),
		)

		for response, err := range generate(ctx, llm, request, ictx.RunConfig.StreamingMode) {
			if err != nil {
				callErr = err
				yield(nil, err)
				return
			}

			altered, err := f.handleAfterModelCallback(ctx, ictx, llmAgent, response, modelResponseEvent)
			if err != nil {
				callErr = err
				yield(nil, err)
				return
			}
			if altered != nil {
				response = altered
			}
			if !yield(response, nil) {
				return
			}
		}
	}
}

// generate calls the model in the requested streaming mode.
func generate(ctx context.Context, llm types.Model, request *types.LLMRequest, mode types.StreamingMode) iter.Seq2[*types.LLMResponse, error] {
	if mode == types.StreamingModeSSE {
		return llm.StreamGenerateContent(ctx, request)
	}
	return xiter.Of(func() (*types.LLMResponse, error) {
		response, err := llm.GenerateContent(ctx, request)
		if err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}
		return response, nil
	})
}

// handleBeforeModelCallback runs the before model callbacks until one returns a response.
func (f *LLMFlow) handleBeforeModelCallback(ctx context.Context, ictx *types.InvocationContext, llmAgent types.LLMAgent, request *types.LLMRequest, modelResponseEvent *types.Event) (*types.LLMResponse, error) {
	callbacks := llmAgent.BeforeModelCallbacks()
	if len(callbacks) == 0 {
		return nil, nil
	}

	cctx := types.NewCallbackContextWithActions(ictx, modelResponseEvent.Actions)
	for i, callback := range callbacks {
		response, err := callback(ctx, cctx, request)
		if err != nil {
			return nil, fmt.Errorf("before model callback[%d]: %w", i, err)
		}
		if response != nil {
			return response, nil
		}
	}

	return nil, nil
}

// handleAfterModelCallback runs the after model callbacks until one returns a response.
func (f *LLMFlow) handleAfterModelCallback(ctx context.Context, ictx *types.InvocationContext, llmAgent types.LLMAgent, response *types.LLMResponse, modelResponseEvent *types.Event) (*types.LLMResponse, error) {
	callbacks := llmAgent.AfterModelCallbacks()
	if len(callbacks) == 0 {
		return nil, nil
	}

	cctx := types.NewCallbackContextWithActions(ictx, modelResponseEvent.Actions)
	for i, callback := range callbacks {
		altered, err := callback(ctx, cctx, response)
		if err != nil {
			return nil, fmt.Errorf("after model callback[%d]: %w", i, err)
		}
		if altered != nil {
			return altered, nil
		}
	}

	return nil, nil
}

// postprocess runs the response processors, emits the model response event and
// handles the function calls it carries.
func (f *LLMFlow) postprocess(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest, response *types.LLMResponse, modelResponseEvent *types.Event) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		for _, processor := range f.ResponseProcessors {
			for event, err := range processor.Run(ctx, ictx, response) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(event, nil) {
					return
				}
			}
		}

		// Responses emptied by a processor, e.g. after code execution, still
		// trigger another step. Errors and interruptions are always surfaced.
		if response.IsEmpty() && !response.Interrupted {
			return
		}

		event := f.finalizeModelResponseEvent(request, response, modelResponseEvent)
		if !yield(event, nil) {
			return
		}

		if event.IsPartial() || len(event.GetFunctionCalls()) == 0 {
			return
		}
		for event, err := range f.postprocessHandleFunctionCalls(ctx, ictx, event, request) {
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

func (f *LLMFlow) postprocessHandleFunctionCalls(ctx context.Context, ictx *types.InvocationContext, funcCallEvent *types.Event, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		funcResponseEvent, err := HandleFunctionCalls(ctx, ictx, funcCallEvent, request.ToolMap, nil)
		if err != nil {
			yield(nil, err)
			return
		}
		if funcResponseEvent == nil {
			return
		}

		authEvent, err := GenerateAuthEvent(ictx, funcResponseEvent)
		if err != nil {
			yield(nil, err)
			return
		}
		if authEvent != nil {
			if !yield(authEvent, nil) {
				return
			}
		}

		if !yield(funcResponseEvent, nil) {
			return
		}

		transferToAgent := funcResponseEvent.Actions.TransferToAgent
		if transferToAgent == "" {
			return
		}
		agentToRun, err := f.getAgentToRun(ictx, transferToAgent)
		if err != nil {
			yield(nil, err)
			return
		}

		f.Logger.DebugContext(ctx, "transfer to agent",
			slog.String("from", ictx.Agent.Name()),
			slog.String("to", agentToRun.Name()),
		)
		for event, err := range agentToRun.Run(ctx, ictx) {
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// getAgentToRun looks up the transfer target in the whole agent tree.
func (f *LLMFlow) getAgentToRun(ictx *types.InvocationContext, transferToAgent string) (types.Agent, error) {
	agentToRun := ictx.Agent.RootAgent().FindAgent(transferToAgent)
	if agentToRun == nil {
		return nil, fmt.Errorf("agent %s not found in the agent tree", transferToAgent)
	}
	return agentToRun, nil
}

// finalizeModelResponseEvent builds the event of one model response from the
// skeleton shared by the step.
func (f *LLMFlow) finalizeModelResponseEvent(request *types.LLMRequest, response *types.LLMResponse, modelResponseEvent *types.Event) *types.Event {
	event := &types.Event{
		LLMResponse:  response,
		InvocationID: modelResponseEvent.InvocationID,
		Author:       modelResponseEvent.Author,
		Actions:      types.NewEventActions().Merge(modelResponseEvent.Actions),
		Branch:       modelResponseEvent.Branch,
		ID:           modelResponseEvent.ID,
		Timestamp:    modelResponseEvent.Timestamp,
	}

	if funcCalls := event.GetFunctionCalls(); len(funcCalls) > 0 {
		PopulateClientFunctionCallID(event)
		event.WithLongRunningToolIDs(GetLongRunningFunctionCalls(funcCalls, request.ToolMap)...)
	}
	return event
}
