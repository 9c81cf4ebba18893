// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"time"

	"google.golang.org/genai"
)

// MemoryService stores conversation content across sessions and serves it
// back to agents by query.
//
// Adding the same session again must not duplicate its entries.
type MemoryService interface {
	AddSessionToMemory(ctx context.Context, session Session) error
	SearchMemory(ctx context.Context, appName, userID, query string) (*SearchMemoryResponse, error)
}

// MemoryEntry is one remembered piece of content.
type MemoryEntry struct {
	Content *genai.Content `json:"content"`
	Author  string         `json:"author,omitempty"`

	// Timestamp is when the remembered content was originally produced.
	// Prompts render it as RFC 3339.
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// SearchMemoryResponse holds the entries matched by [MemoryService.SearchMemory].
type SearchMemoryResponse struct {
	Memories []*MemoryEntry `json:"memories"`
}
