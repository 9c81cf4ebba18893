// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/pool"
)

// LLMRequest represents a LLM request class that allows passing in tools, output schema and system.
type LLMRequest struct {
	// The model name.
	Model string `json:"model,omitzero"`

	// The contents to send to the model.
	Contents []*genai.Content `json:"contents"`

	// Additional config for the generate content request.
	Config *genai.GenerateContentConfig `json:"config,omitzero"`

	// ToolMap resolves function calls of the response by name.
	ToolMap map[string]Tool `json:"-"`
}

// LLMRequestOption configures a [LLMRequest].
type LLMRequestOption func(*LLMRequest)

// WithModelName sets the model name.
func WithModelName(name string) LLMRequestOption {
	return func(r *LLMRequest) {
		r.Model = name
	}
}

// WithGenerationConfig sets the [*genai.GenerateContentConfig] for the [LLMRequestOption].
func WithGenerationConfig(config *genai.GenerateContentConfig) LLMRequestOption {
	return func(r *LLMRequest) {
		r.Config = config
	}
}

// NewLLMRequest creates a new [LLMRequest].
func NewLLMRequest(contents []*genai.Content, opts ...LLMRequestOption) *LLMRequest {
	r := &LLMRequest{
		Contents: contents,
		Config:   &genai.GenerateContentConfig{},
		ToolMap:  make(map[string]Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Config == nil {
		r.Config = &genai.GenerateContentConfig{}
	}

	return r
}

// AppendInstructions appends instructions to the system instruction.
//
// Instructions are joined with blank lines.
func (r *LLMRequest) AppendInstructions(instructions ...string) {
	if len(instructions) == 0 {
		return
	}
	if r.Config == nil {
		r.Config = &genai.GenerateContentConfig{}
	}

	text := strings.Join(instructions, "\n\n")
	si := r.Config.SystemInstruction
	if si == nil || len(si.Parts) == 0 {
		r.Config.SystemInstruction = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		}
		return
	}

	si.Parts[0].Text += "\n\n" + text
}

// SystemInstructionText returns the text of the system instruction.
func (r *LLMRequest) SystemInstructionText() string {
	if r.Config == nil || r.Config.SystemInstruction == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Config.SystemInstruction.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// AppendTools adds the declarations of tools to the request.
//
// Tools whose name is already registered are skipped.
func (r *LLMRequest) AppendTools(tools ...Tool) *LLMRequest {
	if r.Config == nil {
		r.Config = &genai.GenerateContentConfig{}
	}
	if r.ToolMap == nil {
		r.ToolMap = make(map[string]Tool)
	}

	var declarations []*genai.FunctionDeclaration
	for _, tool := range tools {
		if _, ok := r.ToolMap[tool.Name()]; ok {
			continue
		}
		r.ToolMap[tool.Name()] = tool
		if decl := tool.GetDeclaration(); decl != nil {
			declarations = append(declarations, decl)
		}
	}
	if len(declarations) == 0 {
		return r
	}

	for _, t := range r.Config.Tools {
		if t != nil && t.FunctionDeclarations != nil {
			t.FunctionDeclarations = append(t.FunctionDeclarations, declarations...)
			return r
		}
	}
	r.Config.Tools = append(r.Config.Tools, &genai.Tool{
		FunctionDeclarations: declarations,
	})

	return r
}

// DedupeFunctionDeclarations removes function declarations whose name was already declared.
//
// The first declaration of each name wins.
func (r *LLMRequest) DedupeFunctionDeclarations() {
	if r.Config == nil {
		return
	}

	seen := make(map[string]bool)
	for _, t := range r.Config.Tools {
		if t == nil || len(t.FunctionDeclarations) == 0 {
			continue
		}
		decls := t.FunctionDeclarations[:0]
		for _, d := range t.FunctionDeclarations {
			if d == nil || seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			decls = append(decls, d)
		}
		t.FunctionDeclarations = decls
	}
}

// SetOutputSchema configures the expected response format.
func (r *LLMRequest) SetOutputSchema(schema *genai.Schema) *LLMRequest {
	if r.Config == nil {
		r.Config = &genai.GenerateContentConfig{}
	}

	r.Config.ResponseSchema = schema
	r.Config.ResponseMIMEType = "application/json"

	return r
}

// ToJSON converts the request to a JSON string.
func (r *LLMRequest) ToJSON() (string, error) {
	buf := pool.Buffer.Get()
	defer pool.Buffer.Put(buf)

	if err := json.MarshalWrite(buf, r); err != nil {
		return "", fmt.Errorf("marshal LLMRequest to JSON: %w", err)
	}
	return buf.String(), nil
}
