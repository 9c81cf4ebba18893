// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/pool"
	"github.com/go-a2a/agentflow/tool"
	"github.com/go-a2a/agentflow/types"
)

// PreloadMemoryTool injects the memories relevant to the user query into the
// system instruction. The model never calls it.
type PreloadMemoryTool struct {
	*tool.Tool
}

var _ types.Tool = (*PreloadMemoryTool)(nil)

// NewPreloadMemoryTool returns the new [PreloadMemoryTool].
func NewPreloadMemoryTool() *PreloadMemoryTool {
	return &PreloadMemoryTool{
		Tool: tool.MustNewTool("preload_memory", "Preloads the memory for the current user."),
	}
}

// ProcessLLMRequest implements [types.Tool].
func (t *PreloadMemoryTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	return PreloadMemories(ctx, toolCtx, request)
}

// PreloadMemories searches the memory with the text of the user content and
// appends the results to the system instruction inside <PAST_CONVERSATIONS>.
//
// Memories with the same author and text are listed once.
func PreloadMemories(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	query := userQuery(toolCtx.UserContent())
	if query == "" {
		return nil
	}
	resp, err := toolCtx.SearchMemory(ctx, query)
	if err != nil {
		return err
	}

	sb := pool.String.Get()
	defer pool.String.Put(sb)

	for _, m := range dedupeMemories(resp.Memories) {
		text := memoryText(m, " ")
		if text == "" {
			continue
		}
		if !m.Timestamp.IsZero() {
			sb.WriteString("Time: " + m.Timestamp.UTC().Format(time.RFC3339) + "\n")
		}
		if m.Author != "" {
			sb.WriteString(m.Author + ": ")
		}
		sb.WriteString(text + "\n")
	}
	if sb.Len() == 0 {
		return nil
	}

	request.AppendInstructions(`The following content is from your previous conversations with the user.
They may be useful for answering the user's current query.
<PAST_CONVERSATIONS>
` + sb.String() + `</PAST_CONVERSATIONS>`)
	return nil
}

func userQuery(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var texts []string
	for _, p := range content.Parts {
		if p.Text != "" && !p.Thought {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}

func dedupeMemories(memories []*types.MemoryEntry) []*types.MemoryEntry {
	type key struct{ author, text string }
	seen := make(map[key]bool, len(memories))
	out := make([]*types.MemoryEntry, 0, len(memories))
	for _, m := range memories {
		if m == nil {
			continue
		}
		k := key{m.Author, memoryText(m, " ")}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	return out
}

func memoryText(m *types.MemoryEntry, sep string) string {
	if m.Content == nil {
		return ""
	}
	texts := make([]string, 0, len(m.Content.Parts))
	for _, p := range m.Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, sep)
}
