// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"log/slog"
	"unicode"
)

// Config represents the configuration for an [Agent].
type Config struct {
	// The agent's Name.
	//
	// Agent Name must be an identifier and unique within the agent tree.
	// Agent Name cannot be "user", since it's reserved for end-user's input.
	Name string

	// Description about the agent's capability.
	//
	// The model uses this to determine whether to delegate control to the agent.
	// One-line Description is enough and preferred.
	Description string

	// parentAgent is a non-owning back reference set when the agent is bound
	// as a sub-agent.
	parentAgent Agent

	// The sub-agents of this agent.
	subAgents []Agent

	// callback signature that is invoked before the agent run.
	beforeAgentCallbacks []AgentCallback

	// callback signature that is invoked after the agent run.
	afterAgentCallbacks []AgentCallback

	logger *slog.Logger
}

// Option configures a [Config].
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (o optionFunc) apply(c *Config) { o(c) }

// WithDescription sets the description of the agent.
func WithDescription(desc string) Option {
	return optionFunc(func(c *Config) {
		c.Description = desc
	})
}

// WithSubAgents adds sub-agents for the [Config].
func WithSubAgents(agents ...Agent) Option {
	return optionFunc(func(c *Config) {
		c.subAgents = append(c.subAgents, agents...)
	})
}

// WithBeforeAgentCallbacks appends callbacks invoked before the agent run.
func WithBeforeAgentCallbacks(callbacks ...AgentCallback) Option {
	return optionFunc(func(c *Config) {
		c.beforeAgentCallbacks = append(c.beforeAgentCallbacks, callbacks...)
	})
}

// WithAfterAgentCallbacks appends callbacks invoked after the agent run.
func WithAfterAgentCallbacks(callbacks ...AgentCallback) Option {
	return optionFunc(func(c *Config) {
		c.afterAgentCallbacks = append(c.afterAgentCallbacks, callbacks...)
	})
}

// WithLogger sets the logger for the [Config].
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		c.logger = logger
	})
}

// NewConfig creates a new agent configuration with the given name.
func NewConfig(name string, opts ...Option) *Config {
	c := &Config{
		Name:   name,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(c)
	}

	return c
}

// Logger returns the logger of the agent.
func (c *Config) Logger() *slog.Logger {
	return c.logger
}

// ValidateAgentName reports a [ConfigError] unless name is an identifier other than "user".
func ValidateAgentName(name string) error {
	if name == AuthorUser {
		return NewConfigError("agent name cannot be %q; it is reserved for end-user input", AuthorUser)
	}
	if !isIdentifier(name) {
		return NewConfigError("agent name must be a valid identifier, got %q", name)
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
