// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command agentflow chats with a configured LLM agent from the terminal.
//
// Start a conversation:
//
//	agentflow chat --config agentflow.yaml
//
// Inspect and rewind stored sessions:
//
//	agentflow sessions list
//	agentflow sessions rewind --session s1 --invocation e-1234
//
// Settings come from the YAML file and AGENTFLOW_* environment variables.
// Model credentials are read from GOOGLE_API_KEY and ANTHROPIC_API_KEY.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-a2a/agentflow/config"
)

// Build information, set with -ldflags.
var (
	version = "dev"
	commit  = "none"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:          "agentflow",
		Short:        "Run LLM agents backed by persistent sessions",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("AGENTFLOW_CONFIG"), "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, "Env files to load (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		buildChatCmd(flags),
		buildSessionsCmd(flags),
	)
	return rootCmd
}

func (f *globalFlags) load() (*config.Config, error) {
	return config.Load(f.configPath, f.envFiles...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
