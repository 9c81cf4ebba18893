// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/go-a2a/agentflow/model"
	"github.com/go-a2a/agentflow/types"
)

type namedModel struct{ name string }

func (m *namedModel) Name() string              { return m.name }
func (m *namedModel) SupportedModels() []string { return nil }
func (m *namedModel) GenerateContent(context.Context, *types.LLMRequest) (*types.LLMResponse, error) {
	return nil, errors.New("not implemented")
}
func (m *namedModel) StreamGenerateContent(context.Context, *types.LLMRequest) iter.Seq2[*types.LLMResponse, error] {
	return func(func(*types.LLMResponse, error) bool) {}
}

func namedFactory(prefix string) model.Factory {
	return func(_ context.Context, name string) (types.Model, error) {
		return &namedModel{name: prefix + ":" + name}, nil
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := model.NewRegistry()
	if err := r.Register(`fake-.*`, namedFactory("fake")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(`other-1`, namedFactory("other")); err != nil {
		t.Fatal(err)
	}

	tests := map[string]struct {
		name    string
		want    string
		wantErr bool
	}{
		"prefix pattern":  {name: "fake-small", want: "fake:fake-small"},
		"exact pattern":   {name: "other-1", want: "other:other-1"},
		"whole name only": {name: "other-12", wantErr: true},
		"unknown":         {name: "gpt-4", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, err := r.NewLLM(t.Context(), tt.name)
			if tt.wantErr {
				var cfgErr types.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("NewLLM(%q) error = %v, want types.ConfigError", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLLM(%q) error = %v", tt.name, err)
			}
			if got := m.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistryReplacesPattern(t *testing.T) {
	t.Parallel()

	r := model.NewRegistry()
	if err := r.Register(`fake-.*`, namedFactory("first")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(`fake-.*`, namedFactory("second")); err != nil {
		t.Fatal(err)
	}

	m, err := r.NewLLM(t.Context(), "fake-x")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.Name(), "second:fake-x"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestRegistryInvalidPattern(t *testing.T) {
	t.Parallel()

	if err := model.NewRegistry().Register(`fake-(`, namedFactory("x")); err == nil {
		t.Error("Register() with an invalid pattern succeeded")
	}
}

func TestDefaultRegistryResolvesFamilies(t *testing.T) {
	t.Parallel()

	r := model.NewDefaultRegistry(model.WithAPIKey("test-key"))
	for _, name := range []string{"gemini-2.0-flash", "claude-3-7-sonnet-latest"} {
		m, err := r.NewLLM(t.Context(), name)
		if err != nil {
			t.Fatalf("NewLLM(%q) error = %v", name, err)
		}
		if got := m.Name(); got != name {
			t.Errorf("Name() = %q, want %q", got, name)
		}
	}
}
