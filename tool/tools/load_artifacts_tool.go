// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"errors"

	"github.com/go-json-experiment/json"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// LoadArtifactsTool lets the model load session artifacts into its context.
//
// The artifacts are added to the outgoing request only, never to the session.
type LoadArtifactsTool struct {
	*tool.Tool
}

var _ types.Tool = (*LoadArtifactsTool)(nil)

// NewLoadArtifactsTool returns the new [LoadArtifactsTool].
func NewLoadArtifactsTool() *LoadArtifactsTool {
	return &LoadArtifactsTool{
		Tool: tool.MustNewTool("load_artifacts", "Loads the artifacts and adds them to the session."),
	}
}

// GetDeclaration implements [types.Tool].
func (t *LoadArtifactsTool) GetDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"artifact_names": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
			},
		},
	}
}

// Run implements [types.Tool].
func (t *LoadArtifactsTool) Run(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
	names := stringSlice(args["artifact_names"])
	if names == nil {
		names = []string{}
	}
	return map[string]any{"artifact_names": names}, nil
}

// ProcessLLMRequest implements [types.Tool].
func (t *LoadArtifactsTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	if err := tool.Declare(t, request); err != nil {
		return err
	}

	names, err := toolCtx.ListArtifacts(ctx)
	if err != nil {
		if errors.Is(err, types.ErrNoArtifactService) {
			return nil
		}
		return err
	}
	if len(names) == 0 {
		return nil
	}

	list, err := json.Marshal(names)
	if err != nil {
		return err
	}
	request.AppendInstructions(`You have a list of artifacts:
  ` + string(list) + `

  When the user asks questions about any of the artifacts, you should call the
  ` + "`load_artifacts`" + ` function to load the artifact. Do not generate any text other
  than the function call.`)

	// the model asked for artifacts in the previous step
	if len(request.Contents) == 0 {
		return nil
	}
	last := request.Contents[len(request.Contents)-1]
	if len(last.Parts) == 0 || last.Parts[0].FunctionResponse == nil || last.Parts[0].FunctionResponse.Name != t.Name() {
		return nil
	}
	for _, name := range stringSlice(last.Parts[0].FunctionResponse.Response["artifact_names"]) {
		artifact, err := toolCtx.LoadArtifact(ctx, name, types.LatestArtifactVersion)
		if err != nil {
			return err
		}
		if artifact == nil {
			continue
		}
		request.Contents = append(request.Contents, genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText("Artifact " + name + " is:"),
			artifact,
		}, genai.RoleUser))
	}

	return nil
}

// stringSlice accepts both []string and the []any produced by JSON decoding.
func stringSlice(v any) []string {
	switch v := v.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
