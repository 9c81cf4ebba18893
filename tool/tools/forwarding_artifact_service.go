// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// forwardingArtifactService stores the artifacts of an agent run by an
// [AgentTool] in the session of the calling agent.
//
// The app, user and session arguments are ignored; saves are recorded in the
// artifact delta of the calling tool.
type forwardingArtifactService struct {
	toolCtx *types.ToolContext
}

var _ types.ArtifactService = (*forwardingArtifactService)(nil)

func newForwardingArtifactService(toolCtx *types.ToolContext) *forwardingArtifactService {
	return &forwardingArtifactService{toolCtx: toolCtx}
}

// SaveArtifact implements [types.ArtifactService].
func (a *forwardingArtifactService) SaveArtifact(ctx context.Context, _, _, _, filename string, artifact *genai.Part) (int, error) {
	return a.toolCtx.SaveArtifact(ctx, filename, artifact)
}

// LoadArtifact implements [types.ArtifactService].
func (a *forwardingArtifactService) LoadArtifact(ctx context.Context, _, _, _, filename string, version int) (*genai.Part, error) {
	return a.toolCtx.LoadArtifact(ctx, filename, version)
}

// ListArtifactKeys implements [types.ArtifactService].
func (a *forwardingArtifactService) ListArtifactKeys(ctx context.Context, _, _, _ string) ([]string, error) {
	return a.toolCtx.ListArtifacts(ctx)
}

// DeleteArtifact implements [types.ArtifactService].
func (a *forwardingArtifactService) DeleteArtifact(ctx context.Context, _, _, _, filename string) error {
	ictx := a.toolCtx.InvocationContext()
	if ictx.ArtifactService == nil {
		return types.ErrNoArtifactService
	}
	return ictx.ArtifactService.DeleteArtifact(ctx, ictx.AppName(), ictx.UserID(), ictx.Session.ID(), filename)
}

// ListVersions implements [types.ArtifactService].
func (a *forwardingArtifactService) ListVersions(ctx context.Context, _, _, _, filename string) ([]int, error) {
	ictx := a.toolCtx.InvocationContext()
	if ictx.ArtifactService == nil {
		return nil, types.ErrNoArtifactService
	}
	return ictx.ArtifactService.ListVersions(ctx, ictx.AppName(), ictx.UserID(), ictx.Session.ID(), filename)
}
