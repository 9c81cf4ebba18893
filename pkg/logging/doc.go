// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging carries a [*slog.Logger] through a [context.Context].
//
// The runner installs one logger per invocation, annotated with the app,
// user, session and invocation ids, and the flow engine, tools and session
// services log through it:
//
//	ctx = logging.NewContext(ctx, logger.With(slog.String("invocation_id", id)))
//	...
//	logging.FromContext(ctx).DebugContext(ctx, "appended event", slog.String("event_id", ev.ID))
//
// When ctx carries no logger, [FromContext] falls back to [slog.Default].
package logging
