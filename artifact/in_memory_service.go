// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// maxRefDepth bounds how many reference artifacts are followed on load.
const maxRefDepth = 8

// artifactKey locates the versions of one artifact.
//
// sessionID is empty for "user:" artifacts, which are shared by every session of the user.
type artifactKey struct {
	appName   string
	userID    string
	sessionID string
	filename  string
}

func newArtifactKey(appName, userID, sessionID, filename string) artifactKey {
	if strings.HasPrefix(filename, types.UserArtifactPrefix) {
		sessionID = ""
	}
	return artifactKey{appName: appName, userID: userID, sessionID: sessionID, filename: filename}
}

// InMemoryService is an in-memory implementation of the [types.ArtifactService].
//
// Loading a reference part produced by session rewind returns the part it points to.
type InMemoryService struct {
	artifacts map[artifactKey][]*genai.Part
	logger    *slog.Logger
	mu        sync.RWMutex
}

var _ types.ArtifactService = (*InMemoryService)(nil)

// NewInMemoryService creates a new instance of [InMemoryService].
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		artifacts: make(map[artifactKey][]*genai.Part),
		logger:    slog.Default(),
	}
}

// SaveArtifact implements [types.ArtifactService].
func (a *InMemoryService) SaveArtifact(ctx context.Context, appName, userID, sessionID, filename string, artifact *genai.Part) (int, error) {
	if artifact == nil {
		return 0, fmt.Errorf("save artifact %s: nil part", filename)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := newArtifactKey(appName, userID, sessionID, filename)
	version := len(a.artifacts[key])
	a.artifacts[key] = append(a.artifacts[key], artifact)

	a.logger.DebugContext(ctx, "saved artifact", slog.String("filename", filename), slog.Int("version", version))

	return version, nil
}

// LoadArtifact implements [types.ArtifactService].
//
// A negative version loads the latest one. It returns nil without error when
// the artifact or the version does not exist.
func (a *InMemoryService) LoadArtifact(ctx context.Context, appName, userID, sessionID, filename string, version int) (*genai.Part, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	key := newArtifactKey(appName, userID, sessionID, filename)
	for range maxRefDepth {
		part := a.load(key, version)
		ref, ok := types.ParseArtifactRef(part)
		if !ok {
			return part, nil
		}
		key = newArtifactKey(ref.AppName, ref.UserID, ref.SessionID, ref.Filename)
		version = ref.Version
	}

	return nil, fmt.Errorf("load artifact %s: too many nested references", filename)
}

func (a *InMemoryService) load(key artifactKey, version int) *genai.Part {
	versions := a.artifacts[key]
	if len(versions) == 0 {
		return nil
	}
	if version < 0 {
		version = len(versions) - 1
	}
	if version >= len(versions) {
		return nil
	}
	return versions[version]
}

// ListArtifactKeys implements [types.ArtifactService].
func (a *InMemoryService) ListArtifactKeys(ctx context.Context, appName, userID, sessionID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	filenames := []string{}
	for key := range a.artifacts {
		if key.appName != appName || key.userID != userID {
			continue
		}
		if key.sessionID == sessionID || key.sessionID == "" {
			filenames = append(filenames, key.filename)
		}
	}
	slices.Sort(filenames)

	return filenames, nil
}

// DeleteArtifact implements [types.ArtifactService].
func (a *InMemoryService) DeleteArtifact(ctx context.Context, appName, userID, sessionID, filename string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.artifacts, newArtifactKey(appName, userID, sessionID, filename))

	return nil
}

// ListVersions implements [types.ArtifactService].
func (a *InMemoryService) ListVersions(ctx context.Context, appName, userID, sessionID, filename string) ([]int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	versions := a.artifacts[newArtifactKey(appName, userID, sessionID, filename)]
	out := make([]int, len(versions))
	for i := range versions {
		out[i] = i
	}

	return out, nil
}
