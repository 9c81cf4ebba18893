// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Tool call statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collectors of the runtime.
type Metrics struct {
	// LLMCalls counts LLM calls.
	// Labels: agent, model
	LLMCalls *prometheus.CounterVec

	// ToolCalls counts tool executions.
	// Labels: tool, status (success|error)
	ToolCalls *prometheus.CounterVec

	// EventsAppended counts non-partial events persisted to a session.
	// Labels: app
	EventsAppended *prometheus.CounterVec

	// ToolDuration measures tool execution time in seconds.
	// Labels: tool
	ToolDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
//
// Collectors already registered on reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		LLMCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_llm_calls_total",
				Help: "Total number of LLM calls by agent and model",
			},
			[]string{"agent", "model"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_tool_calls_total",
				Help: "Total number of tool executions by tool and status",
			},
			[]string{"tool", "status"},
		),
		EventsAppended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentflow_events_appended_total",
				Help: "Total number of events appended to sessions by app",
			},
			[]string{"app"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentflow_tool_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
	}
	if reg == nil {
		return m, nil
	}

	if err := register(reg, &m.LLMCalls); err != nil {
		return nil, err
	}
	if err := register(reg, &m.ToolCalls); err != nil {
		return nil, err
	}
	if err := register(reg, &m.EventsAppended); err != nil {
		return nil, err
	}
	if err := register(reg, &m.ToolDuration); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				*c = existing
				return nil
			}
		}
		return fmt.Errorf("register collector: %w", err)
	}
	return nil
}

// LLMCall records one LLM call.
func (m *Metrics) LLMCall(agent, model string) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(agent, model).Inc()
}

// ToolCall records one tool execution.
func (m *Metrics) ToolCall(tool string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// EventAppended records one persisted event.
func (m *Metrics) EventAppended(app string) {
	if m == nil {
		return
	}
	m.EventsAppended.WithLabelValues(app).Inc()
}

type contextKey struct{}

// NewContext returns a new [context.Context], derived from ctx, which carries m.
func NewContext(ctx context.Context, m *Metrics) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the [*Metrics] carried by ctx, or nil.
func FromContext(ctx context.Context) *Metrics {
	m, _ := ctx.Value(contextKey{}).(*Metrics)
	return m
}
