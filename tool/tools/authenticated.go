// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"

	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// AuthenticatedFunc is the function called by an [AuthenticatedFunctionTool] once a credential is available.
type AuthenticatedFunc func(ctx context.Context, args map[string]any, toolCtx *types.ToolContext, credential *types.AuthCredential) (any, error)

// AuthenticatedFunctionTool is a [FunctionTool] that needs an end user credential.
//
// Without a stored credential the call requests one from the client and
// returns a pending result. The flow replays the call once the client answers.
type AuthenticatedFunctionTool struct {
	*FunctionTool

	authConfig *types.AuthConfig
	fn         AuthenticatedFunc
}

// PendingAuthResult is returned to the model while the credential is requested.
var PendingAuthResult = map[string]any{"pending": true, "message": "Pending User Authorization."}

// NewAuthenticatedFunctionTool returns the new [AuthenticatedFunctionTool].
func NewAuthenticatedFunctionTool(name, description string, authConfig *types.AuthConfig, fn AuthenticatedFunc, opts ...FunctionToolOption) (*AuthenticatedFunctionTool, error) {
	if authConfig == nil || authConfig.AuthScheme == nil {
		return nil, types.NewConfigError("tool %s: auth config with an auth scheme is required", name)
	}
	if fn == nil {
		return nil, types.NewConfigError("tool %s: function is nil", name)
	}

	t := &AuthenticatedFunctionTool{authConfig: authConfig, fn: fn}
	ft, err := NewFunctionTool(name, description, t.call, opts...)
	if err != nil {
		return nil, err
	}
	t.FunctionTool = ft
	return t, nil
}

func (t *AuthenticatedFunctionTool) call(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	credential := toolCtx.GetAuthResponse(t.authConfig)
	if credential == nil {
		if err := toolCtx.RequestCredential(t.authConfig); err != nil {
			return nil, err
		}
		return PendingAuthResult, nil
	}
	return t.fn(ctx, args, toolCtx, credential)
}

// ProcessLLMRequest implements [types.Tool].
func (t *AuthenticatedFunctionTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return tool.Declare(t, request)
}
