// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/artifact"
	"github.com/go-a2a/agentflow/types"
)

func TestInMemoryServiceVersions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := artifact.NewInMemoryService()

	for i, text := range []string{"v0", "v1", "v2"} {
		v, err := svc.SaveArtifact(ctx, "app", "u", "s", "notes.txt", genai.NewPartFromText(text))
		if err != nil {
			t.Fatal(err)
		}
		if v != i {
			t.Fatalf("SaveArtifact version = %d, want %d", v, i)
		}
	}

	tests := map[string]struct {
		version int
		want    string
		wantNil bool
	}{
		"latest":       {version: types.LatestArtifactVersion, want: "v2"},
		"first":        {version: 0, want: "v0"},
		"middle":       {version: 1, want: "v1"},
		"out of range": {version: 9, wantNil: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			part, err := svc.LoadArtifact(ctx, "app", "u", "s", "notes.txt", tt.version)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantNil {
				if part != nil {
					t.Fatalf("LoadArtifact = %v, want nil", part)
				}
				return
			}
			if part == nil || part.Text != tt.want {
				t.Fatalf("LoadArtifact = %v, want %q", part, tt.want)
			}
		})
	}

	versions, err := svc.ListVersions(ctx, "app", "u", "s", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, versions); diff != "" {
		t.Errorf("ListVersions mismatch (-want +got):\n%s", diff)
	}
}

func TestInMemoryServiceUserNamespace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := artifact.NewInMemoryService()

	if _, err := svc.SaveArtifact(ctx, "app", "u", "s1", "user:profile", genai.NewPartFromText("p")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveArtifact(ctx, "app", "u", "s1", "local.txt", genai.NewPartFromText("l")); err != nil {
		t.Fatal(err)
	}

	part, err := svc.LoadArtifact(ctx, "app", "u", "s2", "user:profile", types.LatestArtifactVersion)
	if err != nil {
		t.Fatal(err)
	}
	if part == nil || part.Text != "p" {
		t.Fatalf("user artifact not shared across sessions: %v", part)
	}

	keys, err := svc.ListArtifactKeys(ctx, "app", "u", "s2")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"user:profile"}, keys); diff != "" {
		t.Errorf("ListArtifactKeys(s2) mismatch (-want +got):\n%s", diff)
	}

	keys, err = svc.ListArtifactKeys(ctx, "app", "u", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"local.txt", "user:profile"}, keys); diff != "" {
		t.Errorf("ListArtifactKeys(s1) mismatch (-want +got):\n%s", diff)
	}

	if err := svc.DeleteArtifact(ctx, "app", "u", "s1", "local.txt"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteArtifact(ctx, "app", "u", "s1", "local.txt"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	part, err = svc.LoadArtifact(ctx, "app", "u", "s1", "local.txt", types.LatestArtifactVersion)
	if err != nil || part != nil {
		t.Fatalf("LoadArtifact after delete = %v, %v", part, err)
	}
}

func TestInMemoryServiceResolvesReferences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := artifact.NewInMemoryService()

	v0, err := svc.SaveArtifact(ctx, "app", "u", "s", "dir/report.txt", genai.NewPartFromText("draft"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveArtifact(ctx, "app", "u", "s", "dir/report.txt", genai.NewPartFromText("final")); err != nil {
		t.Fatal(err)
	}
	ref := types.ArtifactRef{AppName: "app", UserID: "u", SessionID: "s", Filename: "dir/report.txt", Version: v0}
	v2, err := svc.SaveArtifact(ctx, "app", "u", "s", "dir/report.txt", ref.Part())
	if err != nil {
		t.Fatal(err)
	}
	if v2 != 2 {
		t.Fatalf("reference version = %d, want 2", v2)
	}

	part, err := svc.LoadArtifact(ctx, "app", "u", "s", "dir/report.txt", types.LatestArtifactVersion)
	if err != nil {
		t.Fatal(err)
	}
	if part == nil || part.Text != "draft" {
		t.Fatalf("LoadArtifact = %v, want the referenced draft", part)
	}
}

func TestInMemoryServiceReferenceCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := artifact.NewInMemoryService()

	self := types.ArtifactRef{AppName: "app", UserID: "u", SessionID: "s", Filename: "loop", Version: 0}
	if _, err := svc.SaveArtifact(ctx, "app", "u", "s", "loop", self.Part()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.LoadArtifact(ctx, "app", "u", "s", "loop", 0); err == nil {
		t.Fatal("expected an error for a self-referencing artifact")
	}
}
