// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"log/slog"
	"net/http"
)

// Config holds the settings shared by the model adapters.
type Config struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxTokens  int64
	logger     *slog.Logger
}

func newConfig(opts ...Option) Config {
	c := Config{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		c = opt.apply(c)
	}
	return c
}

// Option configures a model adapter.
type Option interface {
	apply(base Config) Config
}

type apiKeyOption string

func (o apiKeyOption) apply(base Config) Config {
	base.apiKey = string(o)
	return base
}

// WithAPIKey sets the API key of the provider.
//
// Without one, adapters read the key from the provider's environment variable.
func WithAPIKey(apiKey string) Option {
	return apiKeyOption(apiKey)
}

type baseURLOption string

func (o baseURLOption) apply(base Config) Config {
	base.baseURL = string(o)
	return base
}

// WithBaseURL overrides the endpoint of the provider API.
func WithBaseURL(url string) Option {
	return baseURLOption(url)
}

type httpClientOption struct{ *http.Client }

func (o httpClientOption) apply(base Config) Config {
	base.httpClient = o.Client
	return base
}

// WithHTTPClient sets the HTTP client used to call the provider.
func WithHTTPClient(client *http.Client) Option {
	return httpClientOption{client}
}

type maxTokensOption int64

func (o maxTokensOption) apply(base Config) Config {
	base.maxTokens = int64(o)
	return base
}

// WithMaxTokens sets the output token limit used when a request does not set one.
func WithMaxTokens(n int64) Option {
	return maxTokensOption(n)
}

type loggerOption struct{ *slog.Logger }

func (o loggerOption) apply(base Config) Config {
	base.logger = o.Logger
	return base
}

// WithLogger sets the logger of the adapter.
func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger}
}
