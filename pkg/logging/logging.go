// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"log/slog"
)

// contextKey is how we find [*slog.Logger] in a [context.Context].
type contextKey struct{}

// NewContext returns a new [context.Context], derived from ctx, which carries the provided [*slog.Logger].
//
// A nil logger leaves ctx unchanged.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the [*slog.Logger] carried by ctx.
//
// If no logger is found, this returns [slog.Default].
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// With returns a context whose logger is the logger of ctx annotated with args.
func With(ctx context.Context, args ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(args...))
}
