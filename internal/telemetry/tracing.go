// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/go-a2a/agentflow"

// Span names.
const (
	SpanCallLLM     = "call_llm"
	SpanExecuteTool = "execute_tool"
	SpanAgentRun    = "agent_run"
)

// Tracer returns the tracer of the runtime from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span named name, suffixed with target when non-empty.
func StartSpan(ctx context.Context, name, target string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if target != "" {
		name += " " + target
	}
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
