// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package codeexecutor_test

import (
	"testing"

	"github.com/go-a2a/agentflow/codeexecutor"
	"github.com/go-a2a/agentflow/types"
)

func TestBuiltInCodeExecutorProcessLLMRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model   string
		wantErr bool
	}{
		{model: "gemini-2.0-flash"},
		{model: "gemini-2.5-pro"},
		{model: "projects/p/locations/l/models/gemini-2.0-flash-001"},
		{model: "gemini-1.5-pro", wantErr: true},
		{model: "claude-sonnet-4", wantErr: true},
		{model: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			t.Parallel()

			request := types.NewLLMRequest(nil)
			request.Model = tt.model
			err := codeexecutor.NewBuiltInCodeExecutor().ProcessLLMRequest(request)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessLLMRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			tools := request.Config.Tools
			if len(tools) != 1 || tools[0].CodeExecution == nil {
				t.Errorf("expected a code execution tool, got %+v", tools)
			}
		})
	}
}

func TestBaseCodeExecutorDefaults(t *testing.T) {
	t.Parallel()

	e := codeexecutor.NewBaseCodeExecutor()
	if e.OptimizeDataFile() || e.IsStateful() {
		t.Error("expected data file optimization and statefulness to be off")
	}
	if got := e.ErrorRetryAttempts(); got != codeexecutor.DefaultErrorRetryAttempts {
		t.Errorf("ErrorRetryAttempts() = %d, want %d", got, codeexecutor.DefaultErrorRetryAttempts)
	}

	e = codeexecutor.NewBaseCodeExecutor(codeexecutor.WithOptimizeDataFile(), codeexecutor.WithStateful(), codeexecutor.WithErrorRetryAttempts(5))
	if !e.OptimizeDataFile() || !e.IsStateful() || e.ErrorRetryAttempts() != 5 {
		t.Errorf("options not applied: %+v", e)
	}
}
