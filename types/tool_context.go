// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"errors"
)

// ToolContext represents a context of the tool.
//
// It gives a tool access to the invocation, the id of the function call that
// triggered it, and the event actions of the function response it produces.
type ToolContext struct {
	*CallbackContext

	functionCallID string
}

// NewToolContext creates a new [ToolContext] recording into actions.
//
// A nil actions allocates fresh ones.
func NewToolContext(ictx *InvocationContext, functionCallID string, actions *EventActions) *ToolContext {
	if actions == nil {
		actions = NewEventActions()
	}
	return &ToolContext{
		CallbackContext: NewCallbackContextWithActions(ictx, actions),
		functionCallID:  functionCallID,
	}
}

// FunctionCallID returns the function call ID for the tool context.
func (tc *ToolContext) FunctionCallID() string {
	return tc.functionCallID
}

// Actions returns the event actions for the tool context.
func (tc *ToolContext) Actions() *EventActions {
	return tc.eventActions
}

// RequestCredential asks the client for the credential described by authConfig.
//
// The invocation pauses after the current step and resumes once the client
// answers the generated auth request.
func (tc *ToolContext) RequestCredential(authConfig *AuthConfig) error {
	if tc.functionCallID == "" {
		return errors.New("functionCallID is not set")
	}

	req, err := NewAuthHandler(authConfig).GenerateAuthRequest()
	if err != nil {
		return err
	}
	if tc.eventActions.RequestedAuthConfigs == nil {
		tc.eventActions.RequestedAuthConfigs = make(map[string]*AuthConfig)
	}
	tc.eventActions.RequestedAuthConfigs[tc.functionCallID] = req

	return nil
}

// GetAuthResponse returns the authentication credential for the given authConfig, or nil.
func (tc *ToolContext) GetAuthResponse(authConfig *AuthConfig) *AuthCredential {
	return NewAuthHandler(authConfig).GetAuthResponse(tc.state)
}

// SearchMemory searches the memory of the current user.
func (tc *ToolContext) SearchMemory(ctx context.Context, query string) (*SearchMemoryResponse, error) {
	svc := tc.ictx.MemoryService
	if svc == nil {
		return nil, errors.New("memory service is not available")
	}

	return svc.SearchMemory(ctx, tc.ictx.AppName(), tc.ictx.UserID(), query)
}
