// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	deepcopy "github.com/tiendc/go-deepcopy"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/xmaps"
	"github.com/go-a2a/agentflow/types"
)

// ContentLLMRequestProcessor builds the contents for the LLM request.
type ContentLLMRequestProcessor struct{}

var _ types.LLMRequestProcessor = (*ContentLLMRequestProcessor)(nil)

// Run implements [types.LLMRequestProcessor].
func (cp *ContentLLMRequestProcessor) Run(ctx context.Context, ictx *types.InvocationContext, request *types.LLMRequest) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok {
			return
		}

		events := ictx.Session.Events()
		var (
			contents []*genai.Content
			err      error
		)
		switch llmAgent.IncludeContents() {
		case types.IncludeContentsNone:
			contents, err = getCurrentTurnContents(ictx.Branch, events, llmAgent.Name())
		default:
			contents, err = getContents(ictx.Branch, events, llmAgent.Name())
		}
		if err != nil {
			yield(nil, err)
			return
		}
		request.Contents = contents
	}
}

// getCurrentTurnContents returns the contents of the current turn, which starts
// at the latest user message or reply of another agent.
func getCurrentTurnContents(currentBranch string, events []*types.Event, agentName string) ([]*genai.Content, error) {
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if event.Author == types.AuthorUser || isOtherAgentReply(agentName, event) {
			return getContents(currentBranch, events[i:], agentName)
		}
	}
	return nil, nil
}

// getContents reconstructs the conversation history visible to the agent.
func getContents(currentBranch string, events []*types.Event, agentName string) ([]*genai.Content, error) {
	var (
		filtered       []*types.Event
		hasCompactions bool
	)
	for _, event := range skipRewoundEvents(events) {
		if isEmptyContentEvent(event) {
			// e.g. events purely mutating the session state
			continue
		}
		if !isEventBelongsToBranch(currentBranch, event) {
			continue
		}
		if isAuthEvent(event) {
			continue
		}
		if event.Actions != nil && event.Actions.Compaction != nil {
			hasCompactions = true
		}
		filtered = append(filtered, event)
	}
	if hasCompactions {
		filtered = replaceCompactedEvents(filtered)
	}

	presented := make([]*types.Event, 0, len(filtered))
	for _, event := range filtered {
		if isOtherAgentReply(agentName, event) {
			if converted := presentOtherAgentMessage(event); converted != nil {
				presented = append(presented, converted)
			}
			continue
		}
		presented = append(presented, event)
	}

	resultEvents, err := rearrangeEventsForLatestFunctionResponse(presented)
	if err != nil {
		return nil, err
	}
	resultEvents, err = rearrangeEventsForAsyncFunctionResponsesInHistory(resultEvents)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(resultEvents))
	for _, event := range resultEvents {
		content := new(genai.Content)
		if err := deepcopy.Copy(content, event.Content); err != nil {
			return nil, fmt.Errorf("copy content of event %s: %w", event.ID, err)
		}
		contents = append(contents, RemoveClientFunctionCallID(content))
	}
	return contents, nil
}

// skipRewoundEvents drops rewind markers and the events they annul: everything
// from the first event of the target invocation up to the marker.
func skipRewoundEvents(events []*types.Event) []*types.Event {
	var kept []*types.Event
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		target := ""
		if event.Actions != nil {
			target = event.Actions.RewindBeforeInvocationID
		}
		if target == "" {
			kept = append(kept, event)
			continue
		}
		for j := range i {
			if events[j].InvocationID == target {
				i = j
				break
			}
		}
	}
	slices.Reverse(kept)
	return kept
}

// replaceCompactedEvents replaces the events covered by compactions with their summaries.
func replaceCompactedEvents(events []*types.Event) []*types.Event {
	var (
		result        []*types.Event
		earliestStart *types.EventCompaction
	)
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if event.Actions != nil && event.Actions.Compaction != nil {
			c := event.Actions.Compaction
			if c.CompactedContent == nil {
				continue
			}
			summary := types.NewEvent().
				WithInvocationID(event.InvocationID).
				WithAuthor(types.AuthorUser).
				WithBranch(event.Branch).
				WithContent(c.CompactedContent).
				WithTimestamp(c.EndTimestamp)
			result = append(result, summary)
			if earliestStart == nil || c.StartTimestamp.Before(earliestStart.StartTimestamp) {
				earliestStart = c
			}
			continue
		}
		if earliestStart == nil || event.Timestamp.Before(earliestStart.StartTimestamp) {
			result = append(result, event)
		}
	}
	slices.Reverse(result)
	return result
}

func isEmptyContentEvent(event *types.Event) bool {
	if event.Actions != nil && event.Actions.Compaction != nil {
		return false
	}
	return !event.HasContent() || event.Content.Role == ""
}

// isEventBelongsToBranch reports whether event is visible from invocationBranch,
// i.e. its branch is invocationBranch or one of its ancestors.
func isEventBelongsToBranch(invocationBranch string, event *types.Event) bool {
	if invocationBranch == "" || event.Branch == "" {
		return true
	}
	return invocationBranch == event.Branch || strings.HasPrefix(invocationBranch, event.Branch+".")
}

func isAuthEvent(event *types.Event) bool {
	if event.Content == nil {
		return false
	}
	for _, part := range event.Content.Parts {
		if part.FunctionCall != nil && part.FunctionCall.Name == RequestEUCFunctionCallName {
			return true
		}
		if part.FunctionResponse != nil && part.FunctionResponse.Name == RequestEUCFunctionCallName {
			return true
		}
	}
	return false
}

// isOtherAgentReply reports whether the event is a reply from another agent.
func isOtherAgentReply(currentAgentName string, event *types.Event) bool {
	return currentAgentName != "" && event.Author != currentAgentName && event.Author != types.AuthorUser
}

// presentOtherAgentMessage converts an event authored by another agent into
// user content, so the current agent can build on it, e.g. summarize it.
//
// It returns nil when nothing but thoughts would be left.
func presentOtherAgentMessage(event *types.Event) *types.Event {
	content := &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText("For context:")},
	}
	for _, part := range event.Content.Parts {
		switch {
		case part.Thought:
		case part.Text != "":
			content.Parts = append(content.Parts,
				genai.NewPartFromText(fmt.Sprintf("[%s] said: %s", event.Author, part.Text)))
		case part.FunctionCall != nil:
			content.Parts = append(content.Parts,
				genai.NewPartFromText(fmt.Sprintf("[%s] called tool `%s` with parameters: %v",
					event.Author, part.FunctionCall.Name, part.FunctionCall.Args)))
		case part.FunctionResponse != nil:
			content.Parts = append(content.Parts,
				genai.NewPartFromText(fmt.Sprintf("[%s] `%s` tool returned result: %v",
					event.Author, part.FunctionResponse.Name, part.FunctionResponse.Response)))
		case part.InlineData != nil, part.FileData != nil, part.ExecutableCode != nil, part.CodeExecutionResult != nil:
			content.Parts = append(content.Parts, part)
		}
	}
	if len(content.Parts) == 1 {
		return nil
	}

	return types.NewEvent().
		WithAuthor(types.AuthorUser).
		WithContent(content).
		WithBranch(event.Branch).
		WithTimestamp(event.Timestamp)
}

// rearrangeEventsForLatestFunctionResponse moves the latest function response
// next to its function call.
//
// When the latest response answers an earlier, long running call, the events
// between the call and the response are dropped and all responses to that
// call are merged.
func rearrangeEventsForLatestFunctionResponse(events []*types.Event) ([]*types.Event, error) {
	if len(events) < 2 {
		return events, nil
	}

	funcResponses := events[len(events)-1].GetFunctionResponses()
	if len(funcResponses) == 0 {
		return events, nil
	}

	responseIDs := make(map[string]bool, len(funcResponses))
	for _, funcResponse := range funcResponses {
		responseIDs[funcResponse.ID] = true
	}

	for _, funcCall := range events[len(events)-2].GetFunctionCalls() {
		if responseIDs[funcCall.ID] {
			// already adjacent
			return events, nil
		}
	}

	funcCallEventIdx := -1
	for idx := len(events) - 2; idx >= 0 && funcCallEventIdx == -1; idx-- {
		funcCalls := events[idx].GetFunctionCalls()
		for _, funcCall := range funcCalls {
			if !responseIDs[funcCall.ID] {
				continue
			}
			funcCallEventIdx = idx

			callIDs := make(map[string]bool, len(funcCalls))
			for _, fc := range funcCalls {
				callIDs[fc.ID] = true
			}
			for id := range responseIDs {
				if !callIDs[id] {
					return nil, fmt.Errorf("last response event should only contain the responses for the function calls in the same function call event, function call ids: %v, function response ids: %v",
						xmaps.SortedKeys(callIDs), xmaps.SortedKeys(responseIDs))
				}
			}
			// collect the responses to every call of that event
			responseIDs = callIDs
			break
		}
	}
	if funcCallEventIdx == -1 {
		return nil, fmt.Errorf("no function call event found for function responses ids: %v", xmaps.SortedKeys(responseIDs))
	}

	var funcResponseEvents []*types.Event
	for _, event := range events[funcCallEventIdx+1 : len(events)-1] {
		if frs := event.GetFunctionResponses(); len(frs) > 0 && responseIDs[frs[0].ID] {
			funcResponseEvents = append(funcResponseEvents, event)
		}
	}
	funcResponseEvents = append(funcResponseEvents, events[len(events)-1])

	merged, err := mergeFunctionResponseEvents(funcResponseEvents)
	if err != nil {
		return nil, err
	}
	return append(slices.Clone(events[:funcCallEventIdx+1]), merged), nil
}

// rearrangeEventsForAsyncFunctionResponsesInHistory places every function
// response right after its function call.
//
// Responses answering no call in the history are dropped.
func rearrangeEventsForAsyncFunctionResponsesInHistory(events []*types.Event) ([]*types.Event, error) {
	callIDToResponseEventIdx := make(map[string]int)
	for i, event := range events {
		for _, funcResponse := range event.GetFunctionResponses() {
			callIDToResponseEventIdx[funcResponse.ID] = i
		}
	}

	result := make([]*types.Event, 0, len(events))
	for _, event := range events {
		if len(event.GetFunctionResponses()) > 0 {
			// emitted together with the function call below
			continue
		}

		funcCalls := event.GetFunctionCalls()
		result = append(result, event)
		if len(funcCalls) == 0 {
			continue
		}

		indices := make(map[int]bool)
		for _, funcCall := range funcCalls {
			if idx, ok := callIDToResponseEventIdx[funcCall.ID]; ok {
				indices[idx] = true
			}
		}
		switch len(indices) {
		case 0:
		case 1:
			for idx := range indices {
				result = append(result, events[idx])
			}
		default:
			responseEvents := make([]*types.Event, 0, len(indices))
			for _, idx := range xmaps.SortedKeys(indices) {
				responseEvents = append(responseEvents, events[idx])
			}
			merged, err := mergeFunctionResponseEvents(responseEvents)
			if err != nil {
				return nil, err
			}
			result = append(result, merged)
		}
	}
	return result, nil
}

// mergeFunctionResponseEvents merges function response events of one function
// call event so calls and responses stay paired and adjacent.
//
// A later response to the same call replaces the earlier one in place.
func mergeFunctionResponseEvents(funcResponseEvents []*types.Event) (*types.Event, error) {
	if len(funcResponseEvents) == 0 {
		return nil, errors.New("at least one function_response event is required")
	}

	first := funcResponseEvents[0]
	if first.Content == nil || len(first.Content.Parts) == 0 {
		return nil, errors.New("there should be at least one function_response part")
	}

	parts := slices.Clone(first.Content.Parts)
	partIdx := make(map[string]int)
	for i, part := range parts {
		if part.FunctionResponse != nil {
			partIdx[part.FunctionResponse.ID] = i
		}
	}

	for _, event := range funcResponseEvents[1:] {
		if event.Content == nil || len(event.Content.Parts) == 0 {
			return nil, errors.New("there should be at least one function_response part")
		}
		for _, part := range event.Content.Parts {
			if part.FunctionResponse == nil {
				parts = append(parts, part)
				continue
			}
			if idx, ok := partIdx[part.FunctionResponse.ID]; ok {
				parts[idx] = part
				continue
			}
			parts = append(parts, part)
			partIdx[part.FunctionResponse.ID] = len(parts) - 1
		}
	}

	merged := *first
	merged.LLMResponse = first.LLMResponse.Clone()
	merged.Content = &genai.Content{Role: first.Content.Role, Parts: parts}
	return &merged, nil
}
