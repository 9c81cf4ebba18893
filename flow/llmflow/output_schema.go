// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package llmflow

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/types"
)

// OutputSchemaResponseProcessor validates the final text of agents with an
// output schema.
//
// Text which is not strict JSON goes through a lenient JSON5 parse and is
// re-encoded. A response still failing validation is turned into an error
// response with the [types.ErrorCodeOutputSchemaValidation] code.
type OutputSchemaResponseProcessor struct{}

var _ types.LLMResponseProcessor = (*OutputSchemaResponseProcessor)(nil)

// Run implements [types.LLMResponseProcessor].
func (p *OutputSchemaResponseProcessor) Run(ctx context.Context, ictx *types.InvocationContext, response *types.LLMResponse) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		if response == nil || response.Content == nil || response.Partial || response.IsError() {
			return
		}
		llmAgent, ok := ictx.Agent.AsLLMAgent()
		if !ok || llmAgent.OutputSchema() == nil {
			return
		}
		for _, part := range response.Content.Parts {
			if part != nil && (part.FunctionCall != nil || part.ExecutableCode != nil) {
				return
			}
		}
		text := response.Text()
		if strings.TrimSpace(text) == "" {
			return
		}

		schema, err := compileOutputSchema(llmAgent.OutputSchema())
		if err != nil {
			yield(nil, fmt.Errorf("compile output schema of %s: %w", llmAgent.Name(), err))
			return
		}

		value, repaired, err := parseStructuredOutput(text)
		if err != nil {
			response.WithError(types.ErrorCodeOutputSchemaValidation, fmt.Sprintf("output is not valid JSON: %v", err))
			return
		}
		if err := schema.Validate(value); err != nil {
			response.WithError(types.ErrorCodeOutputSchemaValidation, err.Error())
			return
		}

		if repaired != "" {
			logging.FromContext(ctx).WarnContext(ctx, "repaired structured output",
				slog.String("agent", llmAgent.Name()),
			)
			replaceResponseText(response, repaired)
		}
	}
}

// parseStructuredOutput decodes text as JSON. When text had to be repaired, the
// repaired encoding is returned as well.
func parseStructuredOutput(text string) (value any, repaired string, err error) {
	trimmed := stripCodeFence(strings.TrimSpace(text))
	if err := json.Unmarshal([]byte(trimmed), &value); err == nil {
		if trimmed != text {
			repaired = trimmed
		}
		return value, repaired, nil
	}

	value = nil
	if err := json5.Unmarshal([]byte(trimmed), &value); err != nil {
		return nil, "", err
	}
	b, err := json.Marshal(value, json.Deterministic(true))
	if err != nil {
		return nil, "", err
	}
	return value, string(b), nil
}

// stripCodeFence removes a markdown code fence enclosing s.
func stripCodeFence(s string) string {
	rest, ok := strings.CutPrefix(s, "```")
	if !ok {
		return s
	}
	body, ok := strings.CutSuffix(rest, "```")
	if !ok {
		return s
	}
	// drop the language tag
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	return strings.TrimSpace(body)
}

// replaceResponseText replaces the text parts of response by one part holding
// text. Thought parts are kept.
func replaceResponseText(response *types.LLMResponse, text string) {
	parts := make([]*genai.Part, 0, len(response.Content.Parts))
	for _, part := range response.Content.Parts {
		if part != nil && part.Thought {
			parts = append(parts, part)
		}
	}
	response.Content = &genai.Content{
		Role:  response.Content.Role,
		Parts: append(parts, genai.NewPartFromText(text)),
	}
}

var outputSchemaCache sync.Map

func compileOutputSchema(schema *genai.Schema) (*jsonschema.Schema, error) {
	b, err := json.Marshal(types.SchemaToJSONSchema(schema), json.Deterministic(true))
	if err != nil {
		return nil, err
	}
	key := string(b)
	if cached, ok := outputSchemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	compiled, err := jsonschema.CompileString("output_schema.json", key)
	if err != nil {
		return nil, err
	}
	outputSchemaCache.Store(key, compiled)
	return compiled, nil
}

