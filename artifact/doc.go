// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifact provides versioned storage for agent artifacts.
//
// Two implementations of [types.ArtifactService] are provided:
//
//   - InMemoryService keeps every version in process memory.
//   - GCSService stores versions as Google Cloud Storage objects.
//
// Artifacts are scoped to a session unless their filename starts with
// "user:", in which case every session of the user shares them:
//
//	{appName}/{userID}/{sessionID}/{filename}/{version}
//	{appName}/{userID}/user/{filename}/{version}
//
// Each save creates a new version numbered from zero. Loading with
// [types.LatestArtifactVersion] returns the newest version.
//
// # Reference artifacts
//
// Session rewind restores an earlier artifact version by saving a reference
// part (see [types.ArtifactRef]) instead of copying the data. Both services
// resolve references on load, so callers always receive the referenced data:
//
//	svc := artifact.NewInMemoryService()
//	v0, _ := svc.SaveArtifact(ctx, "app", "u", "s", "report.txt", genai.NewPartFromText("draft"))
//	ref := types.ArtifactRef{AppName: "app", UserID: "u", SessionID: "s", Filename: "report.txt", Version: v0}
//	svc.SaveArtifact(ctx, "app", "u", "s", "report.txt", ref.Part())
//	part, _ := svc.LoadArtifact(ctx, "app", "u", "s", "report.txt", types.LatestArtifactVersion) // "draft"
package artifact
