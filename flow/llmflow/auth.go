// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/types"
)

// AuthLLMRequestProcessor resumes the tool calls suspended for end user credentials.
//
// When the last user event answers auth requests, the credentials are stored in
// state and only the original calls that asked for them are run again.
type AuthLLMRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*AuthLLMRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (p *AuthLLMRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			return
		}
		events := ictx.Session.Events()
		if len(events) == 0 {
			return
		}

		// only a fresh answer resumes, later steps of the invocation see it as history
		authRequestIDs, userIdx := authResponseIDs(events)
		if len(authRequestIDs) == 0 || userIdx != len(events)-1 {
			return
		}

		// store the credentials of the last user event
		delta := make(map[string]any)
		state := types.NewState(ictx.State(), delta)
		for _, resp := range events[userIdx].GetFunctionResponses() {
			if resp.Name != RequestEUCFunctionCallName {
				continue
			}
			cfg, err := types.ConvertToAuthConfig(resp.Response)
			if err != nil {
				yield(nil, fmt.Errorf("auth response %s: %w", resp.ID, err))
				return
			}
			if err := types.NewAuthHandler(cfg).ParseAndStoreAuthResponse(ctx, state); err != nil {
				logging.FromContext(ctx).WarnContext(ctx, "store auth response",
					slog.String("function_call_id", resp.ID),
					slog.Any("error", err),
				)
			}
		}
		if len(delta) > 0 {
			ictx.RecordTempState(delta)
			stateEvent := types.NewEvent().
				WithInvocationID(ictx.InvocationID).
				WithAuthor(ictx.Agent.Name()).
				WithBranch(ictx.Branch).
				WithActions(types.NewEventActions().WithStateDelta(delta))
			if !yield(stateEvent, nil) {
				return
			}
		}

		toResume, callEvent := findSuspendedCalls(events[:userIdx], authRequestIDs)
		if callEvent == nil {
			return
		}

		canonicalTools, err := llmAgent.CanonicalTools(ctx, types.NewReadOnlyContext(ictx))
		if err != nil {
			yield(nil, err)
			return
		}
		toolMap := make(map[string]types.Tool, len(canonicalTools))
		for _, tool := range canonicalTools {
			toolMap[tool.Name()] = tool
		}

		funcResponseEvent, err := HandleFunctionCalls(ctx, ictx, callEvent, toolMap, toResume)
		if err != nil {
			yield(nil, err)
			return
		}
		if funcResponseEvent != nil {
			yield(funcResponseEvent, nil)
		}
	}
}

// authResponseIDs returns the ids of the auth request calls answered by the
// last user event, and the index of that event.
func authResponseIDs(events []*types.Event) (map[string]bool, int) {
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if event.Author != types.AuthorUser {
			continue
		}
		ids := make(map[string]bool)
		for _, resp := range event.GetFunctionResponses() {
			if resp.Name == RequestEUCFunctionCallName {
				ids[resp.ID] = true
			}
		}
		return ids, i
	}
	return nil, -1
}

// findSuspendedCalls finds the auth request event answered by authRequestIDs
// and returns the ids of the original calls together with the event holding them.
func findSuspendedCalls(events []*types.Event, authRequestIDs map[string]bool) (map[string]bool, *types.Event) {
	for i := len(events) - 1; i >= 0; i-- {
		toResume := make(map[string]bool)
		for _, call := range events[i].GetFunctionCalls() {
			if call.Name != RequestEUCFunctionCallName || !authRequestIDs[call.ID] {
				continue
			}
			if id, ok := call.Args["function_call_id"].(string); ok {
				toResume[id] = true
			}
		}
		if len(toResume) == 0 {
			continue
		}

		for j := i - 1; j >= 0; j-- {
			for _, call := range events[j].GetFunctionCalls() {
				if toResume[call.ID] {
					return toResume, events[j]
				}
			}
		}
		return nil, nil
	}
	return nil, nil
}
