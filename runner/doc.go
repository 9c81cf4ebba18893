// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package runner drives agents against a session service.
//
// A [Runner] appends the user message to a session, picks the agent that
// should answer it, streams that agent's events to the caller while
// persisting every non-partial one, and optionally compacts the session
// afterwards.
package runner
