// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/model"
	"github.com/go-a2a/agentflow/types"
)

func TestClaudeGenerateContent(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body       string
		wantParts  []*genai.Part
		wantFinish genai.FinishReason
	}{
		"text": {
			body: `{
				"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-7-sonnet-latest",
				"content": [{"type": "text", "text": "pong"}],
				"stop_reason": "end_turn", "stop_sequence": null,
				"usage": {"input_tokens": 5, "output_tokens": 1}
			}`,
			wantParts:  []*genai.Part{{Text: "pong"}},
			wantFinish: genai.FinishReasonStop,
		},
		"tool use": {
			body: `{
				"id": "msg_2", "type": "message", "role": "assistant", "model": "claude-3-7-sonnet-latest",
				"content": [
					{"type": "text", "text": "checking"},
					{"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"city": "Paris"}}
				],
				"stop_reason": "tool_use", "stop_sequence": null,
				"usage": {"input_tokens": 5, "output_tokens": 7}
			}`,
			wantParts: []*genai.Part{
				{Text: "checking"},
				{FunctionCall: &genai.FunctionCall{ID: "toolu_1", Name: "get_weather", Args: map[string]any{"city": "Paris"}}},
			},
			wantFinish: genai.FinishReasonStop,
		},
		"max tokens": {
			body: `{
				"id": "msg_3", "type": "message", "role": "assistant", "model": "claude-3-7-sonnet-latest",
				"content": [{"type": "text", "text": "cut"}],
				"stop_reason": "max_tokens", "stop_sequence": null,
				"usage": {"input_tokens": 5, "output_tokens": 16}
			}`,
			wantParts:  []*genai.Part{{Text: "cut"}},
			wantFinish: genai.FinishReasonMaxTokens,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := newRecordingServer(t, "application/json", tt.body)
			m, err := model.NewClaude(t.Context(), "claude-3-7-sonnet-latest",
				model.WithAPIKey("test-key"),
				model.WithBaseURL(srv.URL),
			)
			if err != nil {
				t.Fatal(err)
			}

			request := types.NewLLMRequest([]*genai.Content{genai.NewContentFromText("ping", genai.RoleUser)})
			request.AppendInstructions("Be terse.")
			resp, err := m.GenerateContent(t.Context(), request)
			if err != nil {
				t.Fatalf("GenerateContent() error = %v", err)
			}

			if resp.Content.Role != genai.RoleModel {
				t.Errorf("Role = %q, want %q", resp.Content.Role, genai.RoleModel)
			}
			if diff := cmp.Diff(tt.wantParts, resp.Content.Parts); diff != "" {
				t.Errorf("parts mismatch (-want +got):\n%s", diff)
			}
			if resp.FinishReason != tt.wantFinish {
				t.Errorf("FinishReason = %q, want %q", resp.FinishReason, tt.wantFinish)
			}

			path, body := srv.lastRequest()
			if !strings.HasSuffix(path, "/v1/messages") {
				t.Errorf("request path = %q, want the messages endpoint", path)
			}
			for _, want := range []string{`"ping"`, "Be terse.", `"max_tokens":4096`} {
				if !strings.Contains(body, want) {
					t.Errorf("request body %s does not contain %s", body, want)
				}
			}
		})
	}
}

func TestClaudeToolRoundTrip(t *testing.T) {
	t.Parallel()

	srv := newRecordingServer(t, "application/json", `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-7-sonnet-latest",
		"content": [{"type": "text", "text": "sunny"}],
		"stop_reason": "end_turn", "stop_sequence": null,
		"usage": {"input_tokens": 9, "output_tokens": 1}
	}`)
	m, err := model.NewClaude(t.Context(), "", model.WithAPIKey("test-key"), model.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Name(); got != model.ClaudeDefaultModel {
		t.Errorf("Name() = %q, want %q", got, model.ClaudeDefaultModel)
	}

	call := genai.NewPartFromFunctionCall("get_weather", map[string]any{"city": "Paris"})
	call.FunctionCall.ID = "toolu_1"
	result := &genai.Part{FunctionResponse: &genai.FunctionResponse{
		ID:       "toolu_1",
		Name:     "get_weather",
		Response: map[string]any{"forecast": "sunny"},
	}}
	request := types.NewLLMRequest([]*genai.Content{
		genai.NewContentFromText("weather in Paris?", genai.RoleUser),
		genai.NewContentFromParts([]*genai.Part{call}, genai.RoleModel),
		genai.NewContentFromParts([]*genai.Part{result}, genai.RoleUser),
	})
	request.Config.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        "get_weather",
			Description: "Returns the forecast for a city.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{"city": {Type: genai.TypeString}},
				Required:   []string{"city"},
			},
		}},
	}}

	if _, err := m.GenerateContent(t.Context(), request); err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}

	_, body := srv.lastRequest()
	for _, want := range []string{`"type":"tool_use"`, `"type":"tool_result"`, `"tool_use_id":"toolu_1"`, `"name":"get_weather"`, "sunny"} {
		if !strings.Contains(body, want) {
			t.Errorf("request body %s does not contain %s", body, want)
		}
	}
}

func TestNewClaudeRequiresAPIKey(t *testing.T) {
	t.Setenv(model.EnvAnthropicAPIKey, "")

	_, err := model.NewClaude(t.Context(), "claude-3-7-sonnet-latest")
	var cfgErr types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("NewClaude() error = %v, want a ConfigError", err)
	}
}
