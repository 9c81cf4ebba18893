// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry records prometheus metrics and OpenTelemetry spans for
// LLM calls, tool executions, agent runs and session appends.
//
// Metrics travel in a [context.Context] so library code never touches a
// global registry:
//
//	m, err := telemetry.NewMetrics(prometheus.NewRegistry())
//	ctx = telemetry.NewContext(ctx, m)
//
// A nil [*Metrics] is a valid no-op recorder.
package telemetry
