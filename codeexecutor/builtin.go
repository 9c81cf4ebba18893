// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package codeexecutor

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// BuiltInCodeExecutor lets the model run the code itself through the Gemini code execution tool.
type BuiltInCodeExecutor struct {
	*BaseCodeExecutor
}

var _ types.BuiltInCodeExecutor = (*BuiltInCodeExecutor)(nil)

// NewBuiltInCodeExecutor returns a new [BuiltInCodeExecutor].
func NewBuiltInCodeExecutor() *BuiltInCodeExecutor {
	return &BuiltInCodeExecutor{
		BaseCodeExecutor: NewBaseCodeExecutor(),
	}
}

// ProcessLLMRequest implements [types.BuiltInCodeExecutor].
//
// Only Gemini 2 and later models support the code execution tool.
func (e *BuiltInCodeExecutor) ProcessLLMRequest(request *types.LLMRequest) error {
	if !supportsCodeExecution(request.Model) {
		return fmt.Errorf("code execution tool is not supported for model %q", request.Model)
	}

	if request.Config == nil {
		request.Config = new(genai.GenerateContentConfig)
	}
	request.Config.Tools = append(request.Config.Tools, &genai.Tool{
		CodeExecution: new(genai.ToolCodeExecution),
	})

	return nil
}

func supportsCodeExecution(model string) bool {
	// strip the resource path of tuned or versioned model names
	if i := strings.LastIndexByte(model, '/'); i >= 0 {
		model = model[i+1:]
	}
	version, ok := strings.CutPrefix(model, "gemini-")
	if !ok || version == "" {
		return false
	}
	return version[0] >= '2' && version[0] <= '9'
}
