// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-a2a/agentflow/types"
)

// Factory creates the model serving modelName.
type Factory func(ctx context.Context, modelName string) (types.Model, error)

type registryEntry struct {
	pattern *regexp.Regexp
	factory Factory
}

// Registry resolves model names to model factories by regular expression.
//
// Patterns are matched against the whole model name in registration order.
// A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a [Registry] serving the Gemini and Claude model families.
// The adapters are created with opts.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry()
	gemini := func(ctx context.Context, name string) (types.Model, error) {
		return NewGemini(ctx, name, opts...)
	}
	claude := func(ctx context.Context, name string) (types.Model, error) {
		return NewClaude(ctx, name, opts...)
	}
	for _, pattern := range GeminiModelPatterns {
		r.mustRegister(pattern, gemini)
	}
	for _, pattern := range ClaudeModelPatterns {
		r.mustRegister(pattern, claude)
	}
	return r
}

// Register associates pattern with factory. Registering a pattern twice
// replaces its factory.
func (r *Registry) Register(pattern string, factory Factory) error {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return fmt.Errorf("compile model pattern %q: %w", pattern, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.entries {
		if entry.pattern.String() == re.String() {
			r.entries[i].factory = factory
			return nil
		}
	}
	r.entries = append(r.entries, registryEntry{pattern: re, factory: factory})
	return nil
}

func (r *Registry) mustRegister(pattern string, factory Factory) {
	if err := r.Register(pattern, factory); err != nil {
		panic(err)
	}
}

// Resolve returns the factory of the first pattern matching modelName.
func (r *Registry) Resolve(modelName string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries {
		if entry.pattern.MatchString(modelName) {
			return entry.factory, nil
		}
	}
	return nil, types.NewConfigError("model %s is not registered", modelName)
}

// NewLLM creates the model serving modelName.
func (r *Registry) NewLLM(ctx context.Context, modelName string) (types.Model, error) {
	factory, err := r.Resolve(modelName)
	if err != nil {
		return nil, err
	}
	return factory(ctx, modelName)
}
