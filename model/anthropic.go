// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/bytedance/sonic"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/xiter"
	"github.com/go-a2a/agentflow/types"
)

const (
	// ClaudeDefaultModel is the model used by [NewClaude] without a model name.
	ClaudeDefaultModel = string(anthropic.ModelClaude3_7SonnetLatest)

	// ClaudeDefaultMaxTokens is the output token limit of requests without one.
	ClaudeDefaultMaxTokens = 4096

	// EnvAnthropicAPIKey is the environment variable holding the Anthropic API key.
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// ClaudeModelPatterns are the model names served by [Claude].
var ClaudeModelPatterns = []string{
	`claude-.*`,
}

// Claude is a [types.Model] backed by the Anthropic Messages API.
type Claude struct {
	name      string
	client    anthropic.Client
	maxTokens int64
	logger    *slog.Logger
}

var _ types.Model = (*Claude)(nil)

// NewClaude creates a new [Claude] serving modelName.
func NewClaude(ctx context.Context, modelName string, opts ...Option) (*Claude, error) {
	if modelName == "" {
		modelName = ClaudeDefaultModel
	}
	cfg := newConfig(opts...)

	apiKey := cfg.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAnthropicAPIKey)
	}
	if apiKey == "" {
		return nil, types.NewConfigError("claude: either WithAPIKey or the %s environment variable must be set", EnvAnthropicAPIKey)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.httpClient))
	}

	maxTokens := cfg.maxTokens
	if maxTokens <= 0 {
		maxTokens = ClaudeDefaultMaxTokens
	}

	return &Claude{
		name:      modelName,
		client:    anthropic.NewClient(clientOpts...),
		maxTokens: maxTokens,
		logger:    cfg.logger.With(slog.String("model", modelName)),
	}, nil
}

// Name implements [types.Model].
func (m *Claude) Name() string {
	return m.name
}

// SupportedModels implements [types.Model].
func (m *Claude) SupportedModels() []string {
	return ClaudeModelPatterns
}

// GenerateContent implements [types.Model].
func (m *Claude) GenerateContent(ctx context.Context, request *types.LLMRequest) (*types.LLMResponse, error) {
	params, err := m.messageParams(request)
	if err != nil {
		return nil, err
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude: create message: %w", err)
	}
	m.logger.DebugContext(ctx, "llm response",
		slog.String("stop_reason", string(message.StopReason)),
		slog.Int("blocks", len(message.Content)),
	)

	return claudeMessageToLLMResponse(message)
}

// StreamGenerateContent implements [types.Model].
//
// Text and thinking deltas are yielded as partial responses. The accumulated
// message follows as the final response, unless the output was cut by the
// token limit.
func (m *Claude) StreamGenerateContent(ctx context.Context, request *types.LLMRequest) iter.Seq2[*types.LLMResponse, error] {
	params, err := m.messageParams(request)
	if err != nil {
		return xiter.Error[types.LLMResponse](err)
	}

	return func(yield func(*types.LLMResponse, error) bool) {
		stream := m.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		var message anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				yield(nil, fmt.Errorf("claude: accumulate stream: %w", err))
				return
			}
			if event.Type != "content_block_delta" {
				continue
			}

			var part *genai.Part
			switch event.Delta.Type {
			case "text_delta":
				part = genai.NewPartFromText(event.Delta.Text)
			case "thinking_delta":
				part = &genai.Part{Text: event.Delta.Thinking, Thought: true}
			default:
				continue
			}
			partial := &types.LLMResponse{
				Content: genai.NewContentFromParts([]*genai.Part{part}, genai.RoleModel),
				Partial: true,
			}
			if !yield(partial, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(nil, fmt.Errorf("claude: stream message: %w", err))
			return
		}

		if message.StopReason == anthropic.StopReasonMaxTokens && !hasToolUse(&message) {
			return
		}
		yield(claudeMessageToLLMResponse(&message))
	}
}

func (m *Claude) messageParams(request *types.LLMRequest) (anthropic.MessageNewParams, error) {
	model := request.Model
	if model == "" {
		model = m.name
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: m.maxTokens,
	}

	for _, content := range appendUserContent(request.Contents) {
		msg, err := contentToMessageParam(content)
		if err != nil {
			return params, err
		}
		if len(msg.Content) > 0 {
			params.Messages = append(params.Messages, msg)
		}
	}

	config := request.Config
	if config == nil {
		return params, nil
	}
	if si := systemInstructionText(config.SystemInstruction); si != "" {
		params.System = []anthropic.TextBlockParam{{Text: si}}
	}
	if config.MaxOutputTokens > 0 {
		params.MaxTokens = int64(config.MaxOutputTokens)
	}
	if config.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*config.Temperature))
	}
	if config.TopP != nil {
		params.TopP = anthropic.Float(float64(*config.TopP))
	}
	if config.TopK != nil {
		params.TopK = anthropic.Int(int64(*config.TopK))
	}
	if len(config.StopSequences) > 0 {
		params.StopSequences = config.StopSequences
	}
	if tc := config.ThinkingConfig; tc != nil && tc.ThinkingBudget != nil && *tc.ThinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(*tc.ThinkingBudget))
	}
	for _, tool := range config.Tools {
		if tool == nil {
			continue
		}
		for _, decl := range tool.FunctionDeclarations {
			toolParam, err := functionDeclarationToToolParam(decl)
			if err != nil {
				return params, err
			}
			params.Tools = append(params.Tools, toolParam)
		}
	}

	return params, nil
}

func systemInstructionText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	texts := make([]string, 0, len(content.Parts))
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

func functionDeclarationToToolParam(decl *genai.FunctionDeclaration) (anthropic.ToolUnionParam, error) {
	if decl == nil || decl.Name == "" {
		return anthropic.ToolUnionParam{}, fmt.Errorf("claude: function declaration without name")
	}

	var inputSchema anthropic.ToolInputSchemaParam
	if params := decl.Parameters; params != nil {
		if len(params.Properties) > 0 {
			props := make(map[string]any, len(params.Properties))
			for name, prop := range params.Properties {
				props[name] = types.SchemaToJSONSchema(prop)
			}
			inputSchema.Properties = props
		}
		inputSchema.Required = params.Required
	}

	toolParam := anthropic.ToolUnionParamOfTool(inputSchema, decl.Name)
	if decl.Description != "" {
		toolParam.OfTool.Description = anthropic.String(decl.Description)
	}
	return toolParam, nil
}

func claudeRole(role string) anthropic.MessageParamRole {
	if role == genai.RoleModel || role == "assistant" {
		return anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParamRoleUser
}

// contentToMessageParam converts content to a Claude message. Thought parts
// are dropped since Claude only accepts signed thinking blocks.
func contentToMessageParam(content *genai.Content) (anthropic.MessageParam, error) {
	msg := anthropic.MessageParam{Role: claudeRole(content.Role)}
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		block, ok, err := partToContentBlock(part)
		if err != nil {
			return msg, err
		}
		if ok {
			msg.Content = append(msg.Content, block)
		}
	}
	return msg, nil
}

func partToContentBlock(part *genai.Part) (anthropic.ContentBlockParamUnion, bool, error) {
	switch {
	case part.Text != "":
		return anthropic.NewTextBlock(part.Text), true, nil

	case part.FunctionCall != nil:
		call := part.FunctionCall
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		return anthropic.NewToolUseBlock(call.ID, args, call.Name), true, nil

	case part.FunctionResponse != nil:
		resp := part.FunctionResponse
		var payload any = resp.Response
		if result, ok := resp.Response["result"]; ok && len(resp.Response) == 1 {
			payload = result
		}
		text, ok := payload.(string)
		if !ok {
			var err error
			if text, err = sonic.ConfigStd.MarshalToString(payload); err != nil {
				return anthropic.ContentBlockParamUnion{}, false, fmt.Errorf("claude: encode function response %s: %w", resp.Name, err)
			}
		}
		_, isError := resp.Response["error"]
		return anthropic.NewToolResultBlock(resp.ID, text, isError), true, nil

	case part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/"):
		data := base64.StdEncoding.EncodeToString(part.InlineData.Data)
		return anthropic.NewImageBlockBase64(part.InlineData.MIMEType, data), true, nil
	}

	return anthropic.ContentBlockParamUnion{}, false, nil
}

func hasToolUse(message *anthropic.Message) bool {
	for _, block := range message.Content {
		if block.Type == "tool_use" {
			return true
		}
	}
	return false
}

func claudeMessageToLLMResponse(message *anthropic.Message) (*types.LLMResponse, error) {
	parts := make([]*genai.Part, 0, len(message.Content))
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			parts = append(parts, genai.NewPartFromText(block.Text))
		case "thinking":
			parts = append(parts, &genai.Part{Text: block.Thinking, Thought: true})
		case "tool_use":
			args := make(map[string]any)
			if len(block.Input) > 0 {
				if err := sonic.ConfigStd.Unmarshal(block.Input, &args); err != nil {
					return nil, fmt.Errorf("claude: decode input of tool %s: %w", block.Name, err)
				}
			}
			part := genai.NewPartFromFunctionCall(block.Name, args)
			part.FunctionCall.ID = block.ID
			parts = append(parts, part)
		}
	}

	usage := message.Usage
	return &types.LLMResponse{
		Content:      genai.NewContentFromParts(parts, genai.RoleModel),
		FinishReason: claudeFinishReason(message.StopReason),
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(usage.InputTokens),
			CandidatesTokenCount: int32(usage.OutputTokens),
			TotalTokenCount:      int32(usage.InputTokens + usage.OutputTokens),
		},
	}, nil
}

func claudeFinishReason(reason anthropic.StopReason) genai.FinishReason {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence, anthropic.StopReasonToolUse:
		return genai.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		return genai.FinishReasonMaxTokens
	}
	return genai.FinishReasonUnspecified
}
