// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	rand "math/rand/v2"
	"slices"
	"time"

	deepcopy "github.com/tiendc/go-deepcopy"
	"google.golang.org/genai"
)

// AuthorUser is the author of events that carry end-user input.
const AuthorUser = "user"

// Event represents an event in a conversation between agents and users.
//
// It is used to store the content of the conversation, as well as the actions
// taken by the agents like function calls, etc.
type Event struct {
	*LLMResponse

	// InvocationID is the id of the invocation that produced the event.
	InvocationID string

	// Author is "user" or the name of the agent that appended the event to the session.
	Author string

	// Actions is the actions taken by the agent.
	Actions *EventActions

	// LongRunningToolIDs is the ids of the long running function calls.
	//
	// Only valid for function call events.
	LongRunningToolIDs []string

	// Branch is the branch of the event.
	//
	// The format is like agent_1.agent_2.agent_3, where agent_1 is the parent of
	// agent_2, and agent_2 is the parent of agent_3.
	//
	// Branch is used when multiple sub-agents shouldn't see their peer agents'
	// conversation history.
	Branch string

	// ID is the unique identifier of the event.
	ID string

	// Timestamp is the creation time of the event.
	Timestamp time.Time
}

// Now returns the current time truncated to microseconds, the precision events are persisted with.
func Now() time.Time {
	return time.UnixMicro(time.Now().UnixMicro())
}

// NewEvent creates a new event with a unique ID, the current timestamp and empty actions.
func NewEvent() *Event {
	return &Event{
		LLMResponse: &LLMResponse{},
		Actions:     NewEventActions(),
		ID:          NewEventID(),
		Timestamp:   Now(),
	}
}

// WithLLMResponse sets the LLMResponse for the event.
func (e *Event) WithLLMResponse(response *LLMResponse) *Event {
	if response == nil {
		response = &LLMResponse{}
	}
	e.LLMResponse = response
	return e
}

// WithContent sets the content of the event's LLMResponse.
func (e *Event) WithContent(content *genai.Content) *Event {
	if e.LLMResponse == nil {
		e.LLMResponse = &LLMResponse{}
	}
	e.LLMResponse.Content = content
	return e
}

// WithInvocationID sets the invocation ID of the event.
func (e *Event) WithInvocationID(id string) *Event {
	e.InvocationID = id
	return e
}

// WithAuthor sets the author of the event.
func (e *Event) WithAuthor(author string) *Event {
	e.Author = author
	return e
}

// WithActions sets the actions of the event.
func (e *Event) WithActions(actions *EventActions) *Event {
	if actions == nil {
		actions = NewEventActions()
	}
	e.Actions = actions
	return e
}

// WithLongRunningToolIDs appends the long running tool IDs of the event.
func (e *Event) WithLongRunningToolIDs(ids ...string) *Event {
	for _, id := range ids {
		if !slices.Contains(e.LongRunningToolIDs, id) {
			e.LongRunningToolIDs = append(e.LongRunningToolIDs, id)
		}
	}
	return e
}

// WithBranch sets the branch of the event.
func (e *Event) WithBranch(branch string) *Event {
	e.Branch = branch
	return e
}

// WithTimestamp sets the timestamp of the event.
func (e *Event) WithTimestamp(ts time.Time) *Event {
	e.Timestamp = ts
	return e
}

// IsPartial reports whether the event is a streaming fragment.
func (e *Event) IsPartial() bool {
	return e.LLMResponse != nil && e.LLMResponse.Partial
}

// IsFinalResponse reports whether the event is the final response of a turn.
func (e *Event) IsFinalResponse() bool {
	if (e.Actions != nil && e.Actions.SkipSummarization) || len(e.LongRunningToolIDs) > 0 {
		return true
	}

	return len(e.GetFunctionCalls()) == 0 &&
		len(e.GetFunctionResponses()) == 0 &&
		!e.IsPartial() &&
		!e.HasTrailingCodeExecutionResult()
}

// GetFunctionCalls returns the function calls in the event.
func (e *Event) GetFunctionCalls() []*genai.FunctionCall {
	if e.LLMResponse == nil || e.Content == nil {
		return nil
	}

	var calls []*genai.FunctionCall
	for _, part := range e.Content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns the function responses in the event.
func (e *Event) GetFunctionResponses() []*genai.FunctionResponse {
	if e.LLMResponse == nil || e.Content == nil {
		return nil
	}

	var resps []*genai.FunctionResponse
	for _, part := range e.Content.Parts {
		if part != nil && part.FunctionResponse != nil {
			resps = append(resps, part.FunctionResponse)
		}
	}
	return resps
}

// HasTrailingCodeExecutionResult reports whether the last content part is a code execution result.
func (e *Event) HasTrailingCodeExecutionResult() bool {
	if e.LLMResponse == nil || e.Content == nil || len(e.Content.Parts) == 0 {
		return false
	}
	last := e.Content.Parts[len(e.Content.Parts)-1]
	return last != nil && last.CodeExecutionResult != nil
}

// HasContent reports whether the event carries at least one non-empty part.
func (e *Event) HasContent() bool {
	if e.LLMResponse == nil || e.Content == nil {
		return false
	}
	for _, part := range e.Content.Parts {
		if part != nil && !isEmptyPart(part) {
			return true
		}
	}
	return false
}

func isEmptyPart(p *genai.Part) bool {
	return p.Text == "" && p.FunctionCall == nil && p.FunctionResponse == nil &&
		p.InlineData == nil && p.FileData == nil && p.ExecutableCode == nil &&
		p.CodeExecutionResult == nil
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	var c Event
	if err := deepcopy.Copy(&c, *e); err != nil {
		// deepcopy only fails on unsupported kinds; fall back to a shallow copy.
		c = *e
	}
	return &c
}

const (
	letterBytes   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	letterIdxBits = 6
	letterIdxMask = 1<<letterIdxBits - 1
	letterIdxMax  = 63 / letterIdxBits
)

// NewEventID returns a random 8 character event id.
func NewEventID() string {
	b := make([]byte, 8)
	for i, cache, remain := len(b)-1, rand.Int64(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = rand.Int64(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}
	return string(b)
}
