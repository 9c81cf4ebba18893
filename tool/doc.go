// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool provides the base type embedded by tool implementations.
//
// A tool embeds *[Tool] for its name, description, long running flag and
// retry policy, and overrides the methods it needs:
//
//	type WeatherTool struct {
//		*tool.Tool
//	}
//
//	func (t *WeatherTool) GetDeclaration() *genai.FunctionDeclaration {
//		return &genai.FunctionDeclaration{
//			Name:        t.Name(),
//			Description: t.Description(),
//			Parameters: &genai.Schema{
//				Type: genai.TypeObject,
//				Properties: map[string]*genai.Schema{
//					"city": {Type: genai.TypeString},
//				},
//				Required: []string{"city"},
//			},
//		}
//	}
//
//	func (t *WeatherTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, req *types.LLMRequest) error {
//		return tool.Declare(t, req)
//	}
//
// Ready made tools live in package tools.
package tool
