// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"maps"
	"slices"
	"strings"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// Func is the function called by a [FunctionTool].
type Func func(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error)

// FunctionTool represents a tool that wraps a user-defined function.
type FunctionTool struct {
	*tool.Tool

	fn         Func
	parameters *genai.Schema
	response   *genai.Schema
}

var _ types.RetryableTool = (*FunctionTool)(nil)

type functionToolConfig struct {
	parameters  *genai.Schema
	response    *genai.Schema
	toolOptions []tool.Option
}

// FunctionToolOption configures a [FunctionTool].
type FunctionToolOption func(*functionToolConfig)

// WithParameters sets the schema of the function arguments.
//
// Required properties missing from a call are reported to the model without
// calling the function.
func WithParameters(schema *genai.Schema) FunctionToolOption {
	return func(c *functionToolConfig) {
		c.parameters = schema
	}
}

// WithResponse sets the schema of the function result.
func WithResponse(schema *genai.Schema) FunctionToolOption {
	return func(c *functionToolConfig) {
		c.response = schema
	}
}

// WithToolOptions applies base tool options such as [tool.WithRetryPolicy].
func WithToolOptions(opts ...tool.Option) FunctionToolOption {
	return func(c *functionToolConfig) {
		c.toolOptions = append(c.toolOptions, opts...)
	}
}

// NewFunctionTool returns the new FunctionTool calling fn.
func NewFunctionTool(name, description string, fn Func, opts ...FunctionToolOption) (*FunctionTool, error) {
	var cfg functionToolConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if fn == nil {
		return nil, types.NewConfigError("tool %s: function is nil", name)
	}

	base, err := tool.NewTool(name, description, cfg.toolOptions...)
	if err != nil {
		return nil, err
	}

	return &FunctionTool{
		Tool:       base,
		fn:         fn,
		parameters: cfg.parameters,
		response:   cfg.response,
	}, nil
}

// GetDeclaration implements [types.Tool].
func (t *FunctionTool) GetDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.parameters,
		Response:    t.response,
	}
}

// Run implements [types.Tool].
func (t *FunctionTool) Run(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	if missing := t.missingArgs(args); len(missing) > 0 {
		return map[string]any{
			"error": "Invoking `" + t.Name() + "()` failed as the following mandatory input parameters are not present:\n" +
				strings.Join(missing, "\n") +
				"\nYou could retry calling this tool, but it is IMPORTANT for you to provide all the mandatory parameters.",
		}, nil
	}

	return t.fn(ctx, maps.Clone(args), toolCtx)
}

func (t *FunctionTool) missingArgs(args map[string]any) []string {
	if t.parameters == nil {
		return nil
	}
	var missing []string
	for _, name := range t.parameters.Required {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	return slices.Clip(missing)
}

// ProcessLLMRequest implements [types.Tool].
func (t *FunctionTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return tool.Declare(t, request)
}

// LongRunningFunctionTool is a [FunctionTool] whose result may arrive after the invocation.
//
// The function returns nil, or an initial status such as an operation id, and
// the client answers the function call later with a function response carrying
// the same id.
type LongRunningFunctionTool struct {
	*FunctionTool
}

// NewLongRunningFunctionTool returns the new [LongRunningFunctionTool] calling fn.
func NewLongRunningFunctionTool(name, description string, fn Func, opts ...FunctionToolOption) (*LongRunningFunctionTool, error) {
	ft, err := NewFunctionTool(name, description, fn, append(opts, WithToolOptions(tool.WithLongRunning()))...)
	if err != nil {
		return nil, err
	}
	return &LongRunningFunctionTool{FunctionTool: ft}, nil
}

// GetDeclaration implements [types.Tool].
func (t *LongRunningFunctionTool) GetDeclaration() *genai.FunctionDeclaration {
	decl := t.FunctionTool.GetDeclaration()
	note := "NOTE: This is a long-running operation. Do not call this tool again if it has already returned some status."
	if decl.Description == "" {
		decl.Description = note
	} else {
		decl.Description += "\n\n" + note
	}
	return decl
}

// ProcessLLMRequest implements [types.Tool].
func (t *LongRunningFunctionTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return tool.Declare(t, request)
}
