// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/telemetry"
	"github.com/go-a2a/agentflow/internal/xmaps"
	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/types"
)

const (
	// FunctionCallIDPrefix prefixes the function call ids generated on the client.
	FunctionCallIDPrefix = "af-"

	// RequestEUCFunctionCallName is the reserved function name of end user credential requests.
	RequestEUCFunctionCallName = "adk_request_credential"
)

// ToolErrorKind is the "error" value of the result returned to the model when a tool keeps failing.
const ToolErrorKind = "tool_execution_error"

// GenerateClientFunctionCallID generates a unique function call ID for the client.
func GenerateClientFunctionCallID() string {
	return FunctionCallIDPrefix + uuid.NewString()
}

// PopulateClientFunctionCallID assigns a client id to every function call of the event lacking one.
func PopulateClientFunctionCallID(modelResponseEvent *types.Event) {
	for _, funcCall := range modelResponseEvent.GetFunctionCalls() {
		if funcCall.ID == "" {
			funcCall.ID = GenerateClientFunctionCallID()
		}
	}
}

// RemoveClientFunctionCallID returns a copy of content without the client generated function call ids.
func RemoveClientFunctionCallID(content *genai.Content) *genai.Content {
	if content == nil {
		return nil
	}

	c := &genai.Content{Role: content.Role, Parts: make([]*genai.Part, len(content.Parts))}
	for i, part := range content.Parts {
		switch {
		case part.FunctionCall != nil && strings.HasPrefix(part.FunctionCall.ID, FunctionCallIDPrefix):
			fc := *part.FunctionCall
			fc.ID = ""
			p := *part
			p.FunctionCall = &fc
			part = &p
		case part.FunctionResponse != nil && strings.HasPrefix(part.FunctionResponse.ID, FunctionCallIDPrefix):
			fr := *part.FunctionResponse
			fr.ID = ""
			p := *part
			p.FunctionResponse = &fr
			part = &p
		}
		c.Parts[i] = part
	}
	return c
}

// GetLongRunningFunctionCalls returns the ids of the calls to long running tools.
func GetLongRunningFunctionCalls(funcCalls []*genai.FunctionCall, toolMap map[string]types.Tool) []string {
	var ids []string
	for _, funcCall := range funcCalls {
		if tool, ok := toolMap[funcCall.Name]; ok && tool.IsLongRunning() {
			ids = append(ids, funcCall.ID)
		}
	}
	return ids
}

// GenerateAuthEvent generates the auth request event of a function response event.
//
// It returns nil when no tool requested credentials.
func GenerateAuthEvent(ictx *types.InvocationContext, funcResponseEvent *types.Event) (*types.Event, error) {
	configs := funcResponseEvent.Actions.RequestedAuthConfigs
	if len(configs) == 0 {
		return nil, nil
	}

	event := types.NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(ictx.Agent.Name()).
		WithBranch(ictx.Branch)

	parts := make([]*genai.Part, 0, len(configs))
	for _, funcCallID := range xmaps.SortedKeys(configs) {
		args, err := (&types.AuthToolArguments{
			FunctionCallID: funcCallID,
			AuthConfig:     configs[funcCallID],
		}).ToMap()
		if err != nil {
			return nil, err
		}

		call := &genai.FunctionCall{
			ID:   GenerateClientFunctionCallID(),
			Name: RequestEUCFunctionCallName,
			Args: args,
		}
		event.WithLongRunningToolIDs(call.ID)
		parts = append(parts, &genai.Part{FunctionCall: call})
	}

	return event.WithContent(genai.NewContentFromParts(parts, genai.Role(funcResponseEvent.Content.Role))), nil
}

// HandleFunctionCalls runs the tools called by functionCallEvent and returns the
// merged function response event, or nil if no call produced a response.
//
// Calls run in order. A non-nil filter restricts execution to the call ids it contains.
func HandleFunctionCalls(ctx context.Context, ictx *types.InvocationContext, functionCallEvent *types.Event, toolMap map[string]types.Tool, filter map[string]bool) (*types.Event, error) {
	llmAgent, ok := ictx.Agent.AsLLMAgent()
	if !ok {
		return nil, nil
	}

	var funcResponseEvents []*types.Event
	for _, funcCall := range functionCallEvent.GetFunctionCalls() {
		if filter != nil && !filter[funcCall.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tool, ok := toolMap[funcCall.Name]
		if !ok {
			return nil, types.ToolNotFoundError(funcCall.Name)
		}
		toolCtx := types.NewToolContext(ictx, funcCall.ID, nil)
		args := funcCall.Args
		if args == nil {
			args = make(map[string]any)
		}

		var funcResponse map[string]any
		for i, callback := range llmAgent.BeforeToolCallbacks() {
			resp, err := callback(ctx, tool, args, toolCtx)
			if err != nil {
				return nil, fmt.Errorf("before tool callback[%d]: %w", i, err)
			}
			if resp != nil {
				funcResponse = resp
				break
			}
		}

		if funcResponse == nil {
			result, err := callTool(ctx, ictx, tool, args, toolCtx)
			if err != nil {
				return nil, err
			}
			funcResponse = toResultMap(result)
		}

		for i, callback := range llmAgent.AfterToolCallbacks() {
			resp, err := callback(ctx, tool, args, toolCtx, funcResponse)
			if err != nil {
				return nil, fmt.Errorf("after tool callback[%d]: %w", i, err)
			}
			if resp != nil {
				funcResponse = resp
				break
			}
		}

		// long running tools may answer later
		if tool.IsLongRunning() && len(funcResponse) == 0 {
			continue
		}

		funcResponseEvents = append(funcResponseEvents, buildResponseEvent(ictx, tool, funcResponse, toolCtx))
	}

	if len(funcResponseEvents) == 0 {
		return nil, nil
	}
	return mergeParallelFunctionResponseEvents(funcResponseEvents)
}

// retryPolicyOf returns the retry policy of tool, falling back to the run default.
func retryPolicyOf(tool types.Tool, runConfig *types.RunConfig) *types.RetryPolicy {
	if rt, ok := tool.(types.RetryableTool); ok {
		if p := rt.RetryPolicy(); p != nil {
			return p
		}
	}
	if runConfig != nil {
		return runConfig.ToolRetry
	}
	return nil
}

// callTool runs tool under its retry policy.
//
// Failures are returned to the model as an error result once the attempts are
// exhausted. Context errors and failures of tools with retries disabled abort the step.
func callTool(ctx context.Context, ictx *types.InvocationContext, tool types.Tool, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanExecuteTool, tool.Name(),
		attribute.String("invocation_id", ictx.InvocationID),
		attribute.String("function_call_id", toolCtx.FunctionCallID()),
	)
	start := time.Now()
	result, err := runWithPolicy(ctx, tool, args, toolCtx, retryPolicyOf(tool, ictx.RunConfig))
	telemetry.FromContext(ctx).ToolCall(tool.Name(), err, time.Since(start))
	telemetry.EndSpan(span, err)

	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return nil, fmt.Errorf("tool %s: %w", tool.Name(), permanent.Unwrap())
	}

	logging.FromContext(ctx).ErrorContext(ctx, "tool execution failed",
		slog.String("tool", tool.Name()),
		slog.String("function_call_id", toolCtx.FunctionCallID()),
		slog.Any("error", err),
	)
	return map[string]any{
		"error":   ToolErrorKind,
		"message": err.Error(),
	}, nil
}

func runWithPolicy(ctx context.Context, tool types.Tool, args map[string]any, toolCtx *types.ToolContext, policy *types.RetryPolicy) (any, error) {
	if policy != nil && policy.Disabled {
		result, err := tool.Run(ctx, args, toolCtx)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return result, nil
	}
	if policy == nil || policy.MaxAttempts <= 1 {
		return tool.Run(ctx, args, toolCtx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.MaxInterval = policy.MaxDelay
	b.Multiplier = 2

	attempt := 0
	operation := func() (any, error) {
		attempt++
		result, err := tool.Run(ctx, args, toolCtx)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return result, err
	}
	notify := func(err error, next time.Duration) {
		logging.FromContext(ctx).WarnContext(ctx, "retry tool",
			slog.String("tool", tool.Name()),
			slog.Int("attempt", attempt),
			slog.Duration("next", next),
			slog.Any("error", err),
		)
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			// unwrap so a cancelled context is reported as such
			return nil, permanent.Unwrap()
		}
		return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return result, nil
}

// toResultMap wraps non-map tool results as {"result": v}. A nil result stays nil.
func toResultMap(result any) map[string]any {
	switch r := result.(type) {
	case nil:
		return nil
	case map[string]any:
		return r
	default:
		return map[string]any{"result": r}
	}
}

func buildResponseEvent(ictx *types.InvocationContext, tool types.Tool, funcResult map[string]any, toolCtx *types.ToolContext) *types.Event {
	if funcResult == nil {
		funcResult = map[string]any{"result": nil}
	}

	part := genai.NewPartFromFunctionResponse(tool.Name(), funcResult)
	part.FunctionResponse.ID = toolCtx.FunctionCallID()

	return types.NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(ictx.Agent.Name()).
		WithBranch(ictx.Branch).
		WithContent(genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser)).
		WithActions(toolCtx.Actions())
}

// mergeParallelFunctionResponseEvents merges function response events into one.
//
// Parts keep the order of the events. Actions are overlaid first-wins, except
// requested auth configs which are a union.
func mergeParallelFunctionResponseEvents(funcRespEvents []*types.Event) (*types.Event, error) {
	switch len(funcRespEvents) {
	case 0:
		return nil, errors.New("no function response events provided")
	case 1:
		return funcRespEvents[0], nil
	}

	var mergedParts []*genai.Part
	mergedActions := types.NewEventActions()
	for _, event := range funcRespEvents {
		if event.Content != nil {
			mergedParts = append(mergedParts, event.Content.Parts...)
		}
		mergedActions.Merge(event.Actions)
	}

	base := funcRespEvents[0]
	return types.NewEvent().
		WithInvocationID(base.InvocationID).
		WithAuthor(base.Author).
		WithBranch(base.Branch).
		WithContent(genai.NewContentFromParts(mergedParts, genai.RoleUser)).
		WithActions(mergedActions).
		WithTimestamp(base.Timestamp), nil
}
