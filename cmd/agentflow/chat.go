// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

func buildChatCmd(flags *globalFlags) *cobra.Command {
	var (
		userID    string
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the configured agent",
		Long: `Reads one user message per line from stdin and prints the agent's replies.

An empty session id starts a new session. Type "exit" or send EOF to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if userID == "" {
				userID = cfg.UserID
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			a.serveMetrics(ctx)

			return a.chat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), userID, sessionID)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (defaults to the configured user)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to resume")
	return cmd
}

// chat runs one invocation per input line until EOF or "exit".
func (a *app) chat(ctx context.Context, in io.Reader, out io.Writer, userID, sessionID string) error {
	if sessionID == "" {
		ses, err := a.runner.SessionService().CreateSession(ctx, a.cfg.AppName, userID, "", nil)
		if err != nil {
			return err
		}
		sessionID = ses.ID()
	}
	fmt.Fprintf(out, "session %s\n", sessionID)

	scanner := bufio.NewScanner(in)
	runConfig := a.cfg.RunConfig()

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "exit", "quit":
			return nil
		}

		msg := genai.NewContentFromText(line, genai.RoleUser)
		for event, err := range a.runner.Run(ctx, userID, sessionID, msg, runConfig) {
			if err != nil {
				return err
			}
			printEvent(out, event)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func printEvent(out io.Writer, event *types.Event) {
	if event.IsPartial() {
		return
	}
	if event.IsError() {
		fmt.Fprintf(out, "[%s] error %s: %s\n", event.Author, event.ErrorCode, event.ErrorMessage)
		return
	}
	for _, call := range event.GetFunctionCalls() {
		args, _ := sonic.ConfigStd.MarshalToString(call.Args)
		fmt.Fprintf(out, "[%s] call %s(%s)\n", event.Author, call.Name, args)
	}
	for _, resp := range event.GetFunctionResponses() {
		result, _ := sonic.ConfigStd.MarshalToString(resp.Response)
		fmt.Fprintf(out, "[%s] %s -> %s\n", event.Author, resp.Name, result)
	}
	if text := event.Text(); text != "" {
		fmt.Fprintf(out, "[%s] %s\n", event.Author, strings.TrimSpace(text))
	}
}
