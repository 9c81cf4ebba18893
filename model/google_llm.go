// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

const (
	// GeminiDefaultModel is the model used by [NewGemini] without a model name.
	GeminiDefaultModel = "gemini-2.0-flash"

	// EnvGoogleAPIKey is the environment variable holding the Gemini API key.
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
)

// GeminiModelPatterns are the model names served by [Gemini].
var GeminiModelPatterns = []string{
	`gemini-.*`,
	`projects/.+/locations/.+/endpoints/.+`,
	`projects/.+/locations/.+/publishers/google/models/gemini.+`,
}

// Gemini is a [types.Model] backed by the Gemini API.
type Gemini struct {
	name   string
	client *genai.Client
	logger *slog.Logger
}

var _ types.Model = (*Gemini)(nil)

// NewGemini creates a new [Gemini] serving modelName.
func NewGemini(ctx context.Context, modelName string, opts ...Option) (*Gemini, error) {
	if modelName == "" {
		modelName = GeminiDefaultModel
	}
	cfg := newConfig(opts...)

	cc := &genai.ClientConfig{
		APIKey:     cfg.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.httpClient,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client (set %s or use WithAPIKey): %w", EnvGoogleAPIKey, err)
	}

	return &Gemini{
		name:   modelName,
		client: client,
		logger: cfg.logger.With(slog.String("model", modelName)),
	}, nil
}

// Name implements [types.Model].
func (m *Gemini) Name() string {
	return m.name
}

// SupportedModels implements [types.Model].
func (m *Gemini) SupportedModels() []string {
	return GeminiModelPatterns
}

// GenerateContent implements [types.Model].
func (m *Gemini) GenerateContent(ctx context.Context, request *types.LLMRequest) (*types.LLMResponse, error) {
	contents := appendUserContent(request.Contents)

	resp, err := m.client.Models.GenerateContent(ctx, m.modelName(request), contents, geminiConfig(request.Config))
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	m.logger.DebugContext(ctx, "llm response", buildResponseLog(resp))

	return CreateLLMResponse(resp), nil
}

// StreamGenerateContent implements [types.Model].
func (m *Gemini) StreamGenerateContent(ctx context.Context, request *types.LLMRequest) iter.Seq2[*types.LLMResponse, error] {
	return func(yield func(*types.LLMResponse, error) bool) {
		contents := appendUserContent(request.Contents)
		aggregator := NewStreamingAggregator()

		for resp, err := range m.client.Models.GenerateContentStream(ctx, m.modelName(request), contents, geminiConfig(request.Config)) {
			if err != nil {
				yield(nil, fmt.Errorf("gemini: stream generate content: %w", err))
				return
			}
			if resp == nil {
				continue
			}

			response := CreateLLMResponse(resp)
			// the closing chunk may only carry the finish reason
			if response.IsError() && response.ErrorCode == string(genai.FinishReasonStop) {
				aggregator.Process(&types.LLMResponse{FinishReason: response.FinishReason, UsageMetadata: response.UsageMetadata})
				continue
			}
			for _, r := range aggregator.Process(response) {
				if !yield(r, nil) {
					return
				}
			}
		}

		if final := aggregator.Close(); final != nil {
			yield(final, nil)
		}
	}
}

func (m *Gemini) modelName(request *types.LLMRequest) string {
	if request.Model != "" {
		return request.Model
	}
	return m.name
}

// geminiConfig drops the fields the Gemini API rejects.
func geminiConfig(config *genai.GenerateContentConfig) *genai.GenerateContentConfig {
	if config == nil || len(config.Labels) == 0 {
		return config
	}
	c := *config
	c.Labels = nil
	return &c
}

// appendUserContent makes sure the contents end with a user turn, which the
// providers require.
func appendUserContent(contents []*genai.Content) []*genai.Content {
	switch {
	case len(contents) == 0:
		return []*genai.Content{
			genai.NewContentFromText(`Handle the requests as specified in the System Instruction.`, genai.RoleUser),
		}
	case strings.ToLower(contents[len(contents)-1].Role) != genai.RoleUser:
		return append(contents[:len(contents):len(contents)],
			genai.NewContentFromText(`Continue processing previous requests as instructed. Exit or provide a summary if no more outputs are needed.`, genai.RoleUser),
		)
	default:
		return contents
	}
}

func buildResponseLog(resp *genai.GenerateContentResponse) slog.Attr {
	calls := resp.FunctionCalls()
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Name
	}
	return slog.Group("response",
		slog.String("text", resp.Text()),
		slog.Any("function_calls", names),
	)
}
