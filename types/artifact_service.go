// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

// LatestArtifactVersion selects the latest version in [ArtifactService.LoadArtifact].
const LatestArtifactVersion = -1

// ArtifactRefMIMEType is the mime type of parts that point at another artifact version.
const ArtifactRefMIMEType = "application/vnd.agentflow.artifact-ref"

// UserArtifactPrefix marks artifacts shared by every session of a user.
const UserArtifactPrefix = "user:"

// ArtifactService stores versioned binary parts per session.
type ArtifactService interface {
	// SaveArtifact saves an artifact to the artifact service storage.
	//
	// The artifact is a file identified by the app name, user ID, session ID, and
	// filename. Filenames starting with "user:" are shared across the user's sessions.
	// After saving the artifact, the new version is returned. Versions start at 0.
	SaveArtifact(ctx context.Context, appName, userID, sessionID, filename string, artifact *genai.Part) (int, error)

	// LoadArtifact gets an artifact from the artifact service storage.
	//
	// A negative version loads the latest. It returns nil when the artifact or
	// version does not exist.
	LoadArtifact(ctx context.Context, appName, userID, sessionID, filename string, version int) (*genai.Part, error)

	// ListArtifactKeys lists all the artifact filenames within a session, sorted.
	ListArtifactKeys(ctx context.Context, appName, userID, sessionID string) ([]string, error)

	// DeleteArtifact deletes all versions of an artifact.
	DeleteArtifact(ctx context.Context, appName, userID, sessionID, filename string) error

	// ListVersions lists all versions of an artifact.
	ListVersions(ctx context.Context, appName, userID, sessionID, filename string) ([]int, error)
}

// ArtifactRef identifies one version of a session artifact.
type ArtifactRef struct {
	AppName   string
	UserID    string
	SessionID string
	Filename  string
	Version   int
}

// URI returns the artifact:// form of the reference.
func (r ArtifactRef) URI() string {
	return fmt.Sprintf("artifact://apps/%s/users/%s/sessions/%s/artifacts/%s/versions/%d",
		r.AppName, r.UserID, r.SessionID, r.Filename, r.Version)
}

// Part returns a part pointing at the referenced artifact.
func (r ArtifactRef) Part() *genai.Part {
	return &genai.Part{
		FileData: &genai.FileData{
			FileURI:  r.URI(),
			MIMEType: ArtifactRefMIMEType,
		},
	}
}

// ParseArtifactRef parses a reference part produced by [ArtifactRef.Part].
func ParseArtifactRef(part *genai.Part) (ArtifactRef, bool) {
	if part == nil || part.FileData == nil || part.FileData.MIMEType != ArtifactRefMIMEType {
		return ArtifactRef{}, false
	}

	rest, ok := strings.CutPrefix(part.FileData.FileURI, "artifact://")
	if !ok {
		return ArtifactRef{}, false
	}
	seg := strings.Split(rest, "/")
	if len(seg) < 10 || seg[0] != "apps" || seg[2] != "users" || seg[4] != "sessions" || seg[6] != "artifacts" || seg[len(seg)-2] != "versions" {
		return ArtifactRef{}, false
	}
	version, err := strconv.Atoi(seg[len(seg)-1])
	if err != nil {
		return ArtifactRef{}, false
	}

	return ArtifactRef{
		AppName:   seg[1],
		UserID:    seg[3],
		SessionID: seg[5],
		// filenames may contain slashes
		Filename: strings.Join(seg[7:len(seg)-2], "/"),
		Version:  version,
	}, true
}
