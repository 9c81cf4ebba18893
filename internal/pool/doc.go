// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool keeps typed [sync.Pool] wrappers for the scratch buffers used
// while rendering prompts, instructions and persisted rows.
package pool
