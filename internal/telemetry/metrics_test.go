// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}

	m.LLMCall("root", "gemini-2.0-flash")
	m.LLMCall("root", "gemini-2.0-flash")
	m.ToolCall("get_weather", nil, time.Millisecond)
	m.ToolCall("get_weather", errors.New("boom"), time.Millisecond)
	m.EventAppended("app")

	tests := map[string]struct {
		got  float64
		want float64
	}{
		"llm calls": {
			got:  testutil.ToFloat64(m.LLMCalls.WithLabelValues("root", "gemini-2.0-flash")),
			want: 2,
		},
		"tool success": {
			got:  testutil.ToFloat64(m.ToolCalls.WithLabelValues("get_weather", StatusSuccess)),
			want: 1,
		},
		"tool error": {
			got:  testutil.ToFloat64(m.ToolCalls.WithLabelValues("get_weather", StatusError)),
			want: 1,
		},
		"events appended": {
			got:  testutil.ToFloat64(m.EventsAppended.WithLabelValues("app")),
			want: 1,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestNewMetricsReusesRegistered(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	if first.LLMCalls != second.LLMCalls {
		t.Error("expected the registered collector to be reused")
	}
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.LLMCall("a", "b")
	m.ToolCall("t", nil, 0)
	m.EventAppended("app")

	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
	ctx := NewContext(context.Background(), m)
	if got := FromContext(ctx); got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
}
