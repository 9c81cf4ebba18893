// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/agentflow/config"
	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()

	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}

const sampleYAML = `
app_name: helpdesk
agent:
  name: frontdesk
  model: claude-3-5-sonnet-latest
  instruction: Greet the user.
  tools: [load_memory, load_artifacts]
run:
  max_llm_calls: 20
  streaming: sse
  llm_requests_per_second: 2.5
  llm_burst: 3
tool_retry:
  max_attempts: 5
  base_delay: 100ms
  max_delay: 2s
compaction:
  interval: 4
  overlap_size: 1
session:
  backend: sqlite
  dsn: file:sessions.db
metrics:
  addr: ":9090"
`

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.CompactionConfig() != nil {
		t.Error("compaction is enabled by default")
	}
	rc := cfg.RunConfig()
	if rc.MaxLLMCalls != types.DefaultMaxLLMCalls || rc.LLMRateLimiter != nil || rc.StreamingMode != types.StreamingModeNone {
		t.Errorf("default run config = %+v", rc)
	}
	if diff := cmp.Diff(types.DefaultRetryPolicy(), rc.ToolRetry); diff != "" {
		t.Errorf("default retry policy mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "agentflow.yaml", sampleYAML)
	envFile := writeFile(t, ".env", "")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		t.Fatal(err)
	}

	want := &config.Config{
		AppName: "helpdesk",
		UserID:  "user",
		Agent: config.AgentConfig{
			Name:        "frontdesk",
			Model:       "claude-3-5-sonnet-latest",
			Instruction: "Greet the user.",
			Tools:       []string{"load_memory", "load_artifacts"},
		},
		Run: config.RunConfig{
			MaxLLMCalls:          20,
			Streaming:            "sse",
			LLMRequestsPerSecond: 2.5,
			LLMBurst:             3,
		},
		ToolRetry: config.RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
		Compaction: config.CompactionConfig{Interval: 4, OverlapSize: 1},
		Session:    config.SessionConfig{Backend: config.BackendSQLite, DSN: "file:sessions.db"},
		Metrics:    config.MetricsConfig{Addr: ":9090"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	rc := cfg.RunConfig()
	if rc.StreamingMode != types.StreamingModeSSE {
		t.Errorf("StreamingMode = %v, want sse", rc.StreamingMode)
	}
	if rc.LLMRateLimiter == nil || rc.LLMRateLimiter.Burst() != 3 || float64(rc.LLMRateLimiter.Limit()) != 2.5 {
		t.Errorf("LLMRateLimiter = %+v, want 2.5 rps with burst 3", rc.LLMRateLimiter)
	}
	if diff := cmp.Diff(&session.CompactionConfig{Interval: 4, OverlapSize: 1}, cfg.CompactionConfig()); diff != "" {
		t.Errorf("CompactionConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("AGENTFLOW_AGENT_MODEL", "gemini-2.5-pro")
	t.Setenv("AGENTFLOW_TOOL_RETRY_BASE_DELAY", "50ms")
	t.Setenv("AGENTFLOW_RUN_STREAMING", "none")
	t.Setenv("AGENTFLOW_SESSION_BACKEND", "memory")
	t.Setenv("AGENTFLOW_AGENT_TOOLS", "google_search,exit_loop")

	cfg, err := config.Load(writeFile(t, "agentflow.yaml", sampleYAML), writeFile(t, ".env", ""))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Agent.Model != "gemini-2.5-pro" {
		t.Errorf("Agent.Model = %q, want the environment value", cfg.Agent.Model)
	}
	if cfg.ToolRetry.BaseDelay != 50*time.Millisecond {
		t.Errorf("ToolRetry.BaseDelay = %v, want 50ms", cfg.ToolRetry.BaseDelay)
	}
	if cfg.Run.Streaming != "none" || cfg.Session.Backend != config.BackendMemory {
		t.Errorf("(streaming, backend) = (%q, %q), want the environment values", cfg.Run.Streaming, cfg.Session.Backend)
	}
	if diff := cmp.Diff([]string{"google_search", "exit_loop"}, cfg.Agent.Tools); diff != "" {
		t.Errorf("Agent.Tools mismatch (-want +got):\n%s", diff)
	}
	if cfg.Agent.Name != "frontdesk" {
		t.Errorf("Agent.Name = %q, want the YAML value kept", cfg.Agent.Name)
	}
}

func TestLoadDotEnv(t *testing.T) {
	unsetEnv(t, "AGENTFLOW_APP_NAME")
	t.Setenv("AGENTFLOW_USER_ID", "from-env")

	envFile := writeFile(t, ".env", "AGENTFLOW_APP_NAME=from-dotenv\nAGENTFLOW_USER_ID=from-dotenv\n")
	cfg, err := config.Load("", envFile)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.AppName != "from-dotenv" {
		t.Errorf("AppName = %q, want the .env value", cfg.AppName)
	}
	if cfg.UserID != "from-env" {
		t.Errorf("UserID = %q, want the environment to win over .env", cfg.UserID)
	}
}

func TestLoadErrors(t *testing.T) {
	emptyEnv := writeFile(t, ".env", "")

	tests := map[string]struct {
		yaml    string
		wantCfg bool
	}{
		"unknown field":           {yaml: "app_name: x\nmodel: y\n"},
		"bad duration":            {yaml: "tool_retry:\n  base_delay: soon\n"},
		"unsupported backend":     {yaml: "session:\n  backend: redis\n", wantCfg: true},
		"missing dsn":             {yaml: "session:\n  backend: postgres\n", wantCfg: true},
		"unknown streaming mode":  {yaml: "run:\n  streaming: bidi\n", wantCfg: true},
		"max delay below base":    {yaml: "tool_retry:\n  base_delay: 2s\n  max_delay: 1s\n", wantCfg: true},
		"negative compaction":     {yaml: "compaction:\n  interval: -1\n", wantCfg: true},
		"empty agent name":        {yaml: "agent:\n  name: \"\"\n", wantCfg: true},
		"negative rate limit":     {yaml: "run:\n  llm_requests_per_second: -1\n", wantCfg: true},
		"negative retry attempts": {yaml: "tool_retry:\n  max_attempts: -2\n", wantCfg: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "agentflow.yaml", tt.yaml), emptyEnv)
			if err == nil {
				t.Fatal("Load() succeeded")
			}
			var cfgErr types.ConfigError
			if got := errors.As(err, &cfgErr); got != tt.wantCfg {
				t.Errorf("Load() error = %v, ConfigError = %t, want %t", err, got, tt.wantCfg)
			}
		})
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), emptyEnv); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() of a missing file error = %v, want fs.ErrNotExist", err)
	}
}
