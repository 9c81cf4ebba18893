// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package xiter builds small [iter.Seq2] values for event and response streams.
package xiter
