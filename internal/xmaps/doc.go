// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package xmaps provides generic map helpers that complement the standard maps package.
package xmaps
