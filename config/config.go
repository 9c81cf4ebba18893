// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

// EnvPrefix prefixes the environment variables read by [Load].
const EnvPrefix = "AGENTFLOW"

// Session backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the configuration of an agentflow application.
type Config struct {
	AppName string `yaml:"app_name" envconfig:"APP_NAME"`
	UserID  string `yaml:"user_id" envconfig:"USER_ID"`

	Agent      AgentConfig      `yaml:"agent" envconfig:"AGENT"`
	Run        RunConfig        `yaml:"run" envconfig:"RUN"`
	ToolRetry  RetryConfig      `yaml:"tool_retry" envconfig:"TOOL_RETRY"`
	Compaction CompactionConfig `yaml:"compaction" envconfig:"COMPACTION"`
	Session    SessionConfig    `yaml:"session" envconfig:"SESSION"`
	Metrics    MetricsConfig    `yaml:"metrics" envconfig:"METRICS"`
}

// AgentConfig describes the root LLM agent.
type AgentConfig struct {
	Name        string `yaml:"name" envconfig:"NAME"`
	Description string `yaml:"description" envconfig:"DESCRIPTION"`
	Model       string `yaml:"model" envconfig:"MODEL"`
	Instruction string `yaml:"instruction" envconfig:"INSTRUCTION"`
	OutputKey   string `yaml:"output_key" envconfig:"OUTPUT_KEY"`

	// Tools names the built-in tools given to the agent.
	Tools []string `yaml:"tools" envconfig:"TOOLS"`
}

// RunConfig holds the per-invocation limits.
type RunConfig struct {
	// MaxLLMCalls bounds the LLM calls of one invocation; <= 0 is unlimited.
	MaxLLMCalls int `yaml:"max_llm_calls" envconfig:"MAX_LLM_CALLS"`

	// Streaming is "none" or "sse".
	Streaming string `yaml:"streaming" envconfig:"STREAMING"`

	SaveInputBlobsAsArtifacts bool `yaml:"save_input_blobs_as_artifacts" envconfig:"SAVE_INPUT_BLOBS_AS_ARTIFACTS"`

	// LLMRequestsPerSecond rate limits LLM calls when > 0.
	LLMRequestsPerSecond float64 `yaml:"llm_requests_per_second" envconfig:"LLM_REQUESTS_PER_SECOND"`
	LLMBurst             int     `yaml:"llm_burst" envconfig:"LLM_BURST"`
}

// RetryConfig is the retry policy of tool executions.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `yaml:"base_delay" envconfig:"BASE_DELAY"`
	MaxDelay    time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY"`
	Disabled    bool          `yaml:"disabled" envconfig:"DISABLED"`
}

// CompactionConfig enables sliding-window compaction when Interval > 0.
type CompactionConfig struct {
	Interval    int `yaml:"interval" envconfig:"INTERVAL"`
	OverlapSize int `yaml:"overlap_size" envconfig:"OVERLAP_SIZE"`
}

// SessionConfig selects the session backend.
type SessionConfig struct {
	// Backend is one of "memory", "sqlite" or "postgres".
	Backend string `yaml:"backend" envconfig:"BACKEND"`
	DSN     string `yaml:"dsn" envconfig:"DSN"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables it.
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	retry := types.DefaultRetryPolicy()
	return &Config{
		AppName: "agentflow",
		UserID:  "user",
		Agent: AgentConfig{
			Name:  "assistant",
			Model: "gemini-2.0-flash",
		},
		Run: RunConfig{
			MaxLLMCalls: types.DefaultMaxLLMCalls,
			Streaming:   types.StreamingModeNone.String(),
			LLMBurst:    1,
		},
		ToolRetry: RetryConfig{
			MaxAttempts: retry.MaxAttempts,
			BaseDelay:   retry.BaseDelay,
			MaxDelay:    retry.MaxDelay,
		},
		Session: SessionConfig{
			Backend: BackendMemory,
		},
	}
}

// Load returns the configuration from the YAML file at path, overridden by
// the environment.
//
// An empty path skips the file. envFiles are read into the environment
// first without overriding variables already set; when none are given a
// .env file in the working directory is used if present.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting as a [types.ConfigError].
func (c *Config) Validate() error {
	switch {
	case c.AppName == "":
		return types.NewConfigError("app_name must not be empty")
	case c.Agent.Name == "":
		return types.NewConfigError("agent.name must not be empty")
	case c.Run.Streaming != types.StreamingModeNone.String() && c.Run.Streaming != types.StreamingModeSSE.String():
		return types.NewConfigError("run.streaming must be %q or %q, got %q", types.StreamingModeNone, types.StreamingModeSSE, c.Run.Streaming)
	case c.Run.LLMRequestsPerSecond < 0:
		return types.NewConfigError("run.llm_requests_per_second must not be negative")
	case c.ToolRetry.MaxAttempts < 0:
		return types.NewConfigError("tool_retry.max_attempts must not be negative")
	case c.ToolRetry.MaxDelay < c.ToolRetry.BaseDelay:
		return types.NewConfigError("tool_retry.max_delay %s is below base_delay %s", c.ToolRetry.MaxDelay, c.ToolRetry.BaseDelay)
	case c.Compaction.Interval < 0 || c.Compaction.OverlapSize < 0:
		return types.NewConfigError("compaction settings must not be negative")
	case !slices.Contains([]string{BackendMemory, BackendSQLite, BackendPostgres}, c.Session.Backend):
		return types.NewConfigError("session.backend %q is not supported", c.Session.Backend)
	case c.Session.Backend != BackendMemory && c.Session.DSN == "":
		return types.NewConfigError("session.dsn is required for the %s backend", c.Session.Backend)
	}
	return nil
}

// RetryPolicy returns the tool retry policy.
func (c *Config) RetryPolicy() *types.RetryPolicy {
	return &types.RetryPolicy{
		MaxAttempts: c.ToolRetry.MaxAttempts,
		BaseDelay:   c.ToolRetry.BaseDelay,
		MaxDelay:    c.ToolRetry.MaxDelay,
		Disabled:    c.ToolRetry.Disabled,
	}
}

// RunConfig returns the run config of an invocation.
//
// Every call returns a new rate limiter.
func (c *Config) RunConfig() *types.RunConfig {
	rc := types.NewRunConfig()
	rc.MaxLLMCalls = c.Run.MaxLLMCalls
	rc.StreamingMode = types.ParseStreamingMode(c.Run.Streaming)
	rc.SaveInputBlobsAsArtifacts = c.Run.SaveInputBlobsAsArtifacts
	rc.ToolRetry = c.RetryPolicy()
	if c.Run.LLMRequestsPerSecond > 0 {
		rc.LLMRateLimiter = rate.NewLimiter(rate.Limit(c.Run.LLMRequestsPerSecond), max(1, c.Run.LLMBurst))
	}
	return rc
}

// CompactionConfig returns the session compaction settings, or nil when compaction is off.
func (c *Config) CompactionConfig() *session.CompactionConfig {
	if c.Compaction.Interval <= 0 {
		return nil
	}
	return &session.CompactionConfig{
		Interval:    c.Compaction.Interval,
		OverlapSize: c.Compaction.OverlapSize,
	}
}
