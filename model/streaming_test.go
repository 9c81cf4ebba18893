// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/model"
	"github.com/go-a2a/agentflow/types"
)

func chunk(parts ...*genai.Part) *types.LLMResponse {
	return &types.LLMResponse{Content: genai.NewContentFromParts(parts, genai.RoleModel)}
}

func thought(text string) *genai.Part {
	return &genai.Part{Text: text, Thought: true}
}

func TestStreamingAggregatorSeparatesThoughts(t *testing.T) {
	t.Parallel()

	agg := model.NewStreamingAggregator()
	var partials int
	for _, c := range []*types.LLMResponse{
		chunk(thought("let me ")),
		chunk(genai.NewPartFromText("Hello, ")),
		chunk(thought("think")),
		chunk(genai.NewPartFromText("world")),
	} {
		for _, r := range agg.Process(c) {
			if !r.Partial {
				t.Fatalf("text chunk emitted as non-partial: %+v", r)
			}
			partials++
		}
	}
	if partials != 4 {
		t.Errorf("got %d partial responses, want 4", partials)
	}

	final := agg.Close()
	if final == nil {
		t.Fatal("Close() = nil, want the aggregated response")
	}
	if final.Partial {
		t.Error("aggregated response is partial")
	}
	want := []*genai.Part{
		{Text: "let me think", Thought: true},
		{Text: "Hello, world"},
	}
	if diff := cmp.Diff(want, final.Content.Parts); diff != "" {
		t.Errorf("parts mismatch (-want +got):\n%s", diff)
	}
	if again := agg.Close(); again != nil {
		t.Errorf("second Close() = %+v, want nil", again)
	}
}

func TestStreamingAggregatorFlushesBeforeFunctionCall(t *testing.T) {
	t.Parallel()

	agg := model.NewStreamingAggregator()
	agg.Process(chunk(genai.NewPartFromText("looking it up")))

	call := chunk(genai.NewPartFromFunctionCall("lookup", map[string]any{"q": "go"}))
	got := agg.Process(call)
	if len(got) != 2 {
		t.Fatalf("Process() returned %d responses, want 2", len(got))
	}
	if got[0].Partial || got[0].Text() != "looking it up" {
		t.Errorf("first response = %+v, want the flushed text", got[0])
	}
	if got[1] != call {
		t.Errorf("second response is not the function call chunk")
	}
	if final := agg.Close(); final != nil {
		t.Errorf("Close() = %+v, want nil", final)
	}
}

func TestStreamingAggregatorWithholdsTruncatedText(t *testing.T) {
	t.Parallel()

	agg := model.NewStreamingAggregator()
	last := chunk(genai.NewPartFromText("cut"))
	last.FinishReason = genai.FinishReasonMaxTokens
	agg.Process(chunk(genai.NewPartFromText("this is ")))
	agg.Process(last)

	if final := agg.Close(); final != nil {
		t.Errorf("Close() = %+v, want nil for a truncated stream", final)
	}
	if got := agg.FinishReason(); got != genai.FinishReasonMaxTokens {
		t.Errorf("FinishReason() = %q, want %q", got, genai.FinishReasonMaxTokens)
	}
}
