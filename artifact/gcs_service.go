// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// refURIMetadataKey holds the reference URI of reference artifacts in object metadata.
const refURIMetadataKey = "artifact-ref-uri"

// GCSService is an artifact service backed by Google Cloud Storage.
//
// Objects are named {app}/{user}/{session}/{filename}/{version}, or
// {app}/{user}/user/{filename}/{version} for "user:" artifacts.
type GCSService struct {
	client *storage.Client
	bucket *storage.BucketHandle
	logger *slog.Logger
}

var _ types.ArtifactService = (*GCSService)(nil)

// NewGCSService creates a [GCSService] for bucketName using application default credentials.
func NewGCSService(ctx context.Context, bucketName string, opts ...option.ClientOption) (*GCSService, error) {
	if len(opts) == 0 {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes: []string{storage.ScopeReadWrite},
		})
		if err != nil {
			return nil, fmt.Errorf("get credentials for storage: %w", err)
		}
		opts = append(opts, option.WithAuthCredentials(creds))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return NewGCSServiceWithClient(client, bucketName), nil
}

// NewGCSServiceWithClient creates a [GCSService] using an existing client.
func NewGCSServiceWithClient(client *storage.Client, bucketName string) *GCSService {
	return &GCSService{
		client: client,
		bucket: client.Bucket(bucketName),
		logger: slog.Default(),
	}
}

// artifactPrefix returns the object prefix of all versions of filename, ending in a slash.
func artifactPrefix(appName, userID, sessionID, filename string) string {
	if strings.HasPrefix(filename, types.UserArtifactPrefix) {
		return fmt.Sprintf("%s/%s/user/%s/", appName, userID, filename)
	}
	return fmt.Sprintf("%s/%s/%s/%s/", appName, userID, sessionID, filename)
}

func blobName(appName, userID, sessionID, filename string, version int) string {
	return artifactPrefix(appName, userID, sessionID, filename) + strconv.Itoa(version)
}

// SaveArtifact implements [types.ArtifactService].
func (a *GCSService) SaveArtifact(ctx context.Context, appName, userID, sessionID, filename string, artifact *genai.Part) (int, error) {
	var (
		data     []byte
		mimeType string
		metadata map[string]string
	)
	switch {
	case artifact == nil:
		return 0, fmt.Errorf("save artifact %s: nil part", filename)
	case artifact.InlineData != nil:
		data, mimeType = artifact.InlineData.Data, artifact.InlineData.MIMEType
	case artifact.FileData != nil && artifact.FileData.MIMEType == types.ArtifactRefMIMEType:
		mimeType = types.ArtifactRefMIMEType
		metadata = map[string]string{refURIMetadataKey: artifact.FileData.FileURI}
	case artifact.Text != "":
		data, mimeType = []byte(artifact.Text), "text/plain"
	default:
		return 0, fmt.Errorf("save artifact %s: part carries no data", filename)
	}

	versions, err := a.ListVersions(ctx, appName, userID, sessionID, filename)
	if err != nil {
		return 0, err
	}
	version := 0
	if len(versions) > 0 {
		version = slices.Max(versions) + 1
	}

	w := a.bucket.Object(blobName(appName, userID, sessionID, filename, version)).NewWriter(ctx)
	w.ContentType = mimeType
	w.Metadata = metadata
	if _, err := w.Write(data); err != nil {
		w.Close()
		return 0, fmt.Errorf("write artifact %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("write artifact %s: %w", filename, err)
	}

	a.logger.DebugContext(ctx, "saved artifact", slog.String("filename", filename), slog.Int("version", version))

	return version, nil
}

// LoadArtifact implements [types.ArtifactService].
//
// A negative version loads the latest one. Reference artifacts are resolved.
func (a *GCSService) LoadArtifact(ctx context.Context, appName, userID, sessionID, filename string, version int) (*genai.Part, error) {
	for range maxRefDepth {
		part, err := a.load(ctx, appName, userID, sessionID, filename, version)
		if err != nil {
			return nil, err
		}
		ref, ok := types.ParseArtifactRef(part)
		if !ok {
			return part, nil
		}
		appName, userID, sessionID, filename, version = ref.AppName, ref.UserID, ref.SessionID, ref.Filename, ref.Version
	}

	return nil, fmt.Errorf("load artifact %s: too many nested references", filename)
}

func (a *GCSService) load(ctx context.Context, appName, userID, sessionID, filename string, version int) (*genai.Part, error) {
	if version < 0 {
		versions, err := a.ListVersions(ctx, appName, userID, sessionID, filename)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, nil
		}
		version = slices.Max(versions)
	}

	blob := a.bucket.Object(blobName(appName, userID, sessionID, filename, version))
	attrs, err := blob.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat artifact %s: %w", filename, err)
	}
	if attrs.ContentType == types.ArtifactRefMIMEType {
		return &genai.Part{FileData: &genai.FileData{
			FileURI:  attrs.Metadata[refURIMetadataKey],
			MIMEType: types.ArtifactRefMIMEType,
		}}, nil
	}

	r, err := blob.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", filename, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", filename, err)
	}

	return genai.NewPartFromBytes(data, attrs.ContentType), nil
}

// ListArtifactKeys implements [types.ArtifactService].
//
// Session and user namespaces are listed concurrently.
func (a *GCSService) ListArtifactKeys(ctx context.Context, appName, userID, sessionID string) ([]string, error) {
	var (
		mu        sync.Mutex
		filenames = make(map[string]struct{})
	)

	eg, ctx := errgroup.WithContext(ctx)
	for _, prefix := range []string{
		fmt.Sprintf("%s/%s/%s/", appName, userID, sessionID),
		fmt.Sprintf("%s/%s/user/", appName, userID),
	} {
		eg.Go(func() error {
			names, err := a.listNames(ctx, prefix)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, name := range names {
				// strip the version segment
				if i := strings.LastIndex(name, "/"); i > 0 {
					filenames[name[:i]] = struct{}{}
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return slices.Sorted(maps.Keys(filenames)), nil
}

// listNames returns the object names under prefix with the prefix trimmed.
func (a *GCSService) listNames(ctx context.Context, prefix string) ([]string, error) {
	it := a.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		names = append(names, strings.TrimPrefix(attrs.Name, prefix))
	}
	return names, nil
}

// DeleteArtifact implements [types.ArtifactService].
func (a *GCSService) DeleteArtifact(ctx context.Context, appName, userID, sessionID, filename string) error {
	versions, err := a.ListVersions(ctx, appName, userID, sessionID, filename)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, version := range versions {
		eg.Go(func() error {
			err := a.bucket.Object(blobName(appName, userID, sessionID, filename, version)).Delete(ctx)
			if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
				return fmt.Errorf("delete artifact %s version %d: %w", filename, version, err)
			}
			return nil
		})
	}

	return eg.Wait()
}

// ListVersions implements [types.ArtifactService].
func (a *GCSService) ListVersions(ctx context.Context, appName, userID, sessionID, filename string) ([]int, error) {
	names, err := a.listNames(ctx, artifactPrefix(appName, userID, sessionID, filename))
	if err != nil {
		return nil, err
	}

	versions := make([]int, 0, len(names))
	for _, name := range names {
		version, err := strconv.Atoi(name)
		if err != nil {
			// nested filename sharing the prefix
			continue
		}
		versions = append(versions, version)
	}
	slices.Sort(versions)

	return versions, nil
}

// Close closes the storage client.
func (a *GCSService) Close() error {
	return a.client.Close()
}
