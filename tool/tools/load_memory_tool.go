// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"time"

	"github.com/go-a2a/agentflow/types"
)

// MemoryResult is one memory returned by the load_memory tool.
type MemoryResult struct {
	Author    string `json:"author,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"text"`
}

// LoadMemoryResponse is the result of the load_memory tool.
type LoadMemoryResponse struct {
	Memories []MemoryResult `json:"memories"`
}

type loadMemoryArgs struct {
	Query string `json:"query" description:"The query to search the memory for."`
}

// LoadMemoryTool searches the memory of the current user.
//
// Only the text parts of memories are returned.
type LoadMemoryTool struct {
	*FunctionTool
}

// NewLoadMemoryTool returns the new [LoadMemoryTool].
func NewLoadMemoryTool() *LoadMemoryTool {
	ft, err := NewTypedFunctionTool("load_memory", "Loads the memory for the current user.", loadMemory)
	if err != nil {
		panic(err)
	}
	return &LoadMemoryTool{FunctionTool: ft}
}

func loadMemory(ctx context.Context, args loadMemoryArgs, toolCtx *types.ToolContext) (*LoadMemoryResponse, error) {
	resp, err := toolCtx.SearchMemory(ctx, args.Query)
	if err != nil {
		return nil, err
	}

	out := &LoadMemoryResponse{Memories: make([]MemoryResult, 0, len(resp.Memories))}
	for _, m := range dedupeMemories(resp.Memories) {
		r := MemoryResult{Author: m.Author, Text: memoryText(m, " ")}
		if !m.Timestamp.IsZero() {
			r.Timestamp = m.Timestamp.UTC().Format(time.RFC3339)
		}
		out.Memories = append(out.Memories, r)
	}
	return out, nil
}

// ProcessLLMRequest implements [types.Tool].
func (t *LoadMemoryTool) ProcessLLMRequest(ctx context.Context, toolCtx *types.ToolContext, request *types.LLMRequest) error {
	request.AppendInstructions(`You have memory. You can use it to answer questions. If any questions need
you to look up the memory, you should call load_memory function with a query.`)
	return t.FunctionTool.ProcessLLMRequest(ctx, toolCtx, request)
}
