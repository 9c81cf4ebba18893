// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-a2a/agentflow/types"
)

func buildSessionsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage stored sessions",
	}
	cmd.AddCommand(
		buildSessionsListCmd(flags),
		buildSessionsShowCmd(flags),
		buildSessionsDeleteCmd(flags),
		buildSessionsRewindCmd(flags),
	)
	return cmd
}

// withApp loads the configuration and runs fn with the resulting app.
func withApp(cmd *cobra.Command, flags *globalFlags, userID *string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	if *userID == "" {
		*userID = cfg.UserID
	}

	a, err := newApp(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func buildSessionsListCmd(flags *globalFlags) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the sessions of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, &userID, func(ctx context.Context, a *app) error {
				return a.listSessions(ctx, cmd.OutOrStdout(), userID)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (defaults to the configured user)")
	return cmd
}

func buildSessionsShowCmd(flags *globalFlags) *cobra.Command {
	var userID, sessionID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the events of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, &userID, func(ctx context.Context, a *app) error {
				return a.showSession(ctx, cmd.OutOrStdout(), userID, sessionID)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (defaults to the configured user)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func buildSessionsDeleteCmd(flags *globalFlags) *cobra.Command {
	var userID, sessionID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, &userID, func(ctx context.Context, a *app) error {
				return a.runner.SessionService().DeleteSession(ctx, a.cfg.AppName, userID, sessionID)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (defaults to the configured user)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func buildSessionsRewindCmd(flags *globalFlags) *cobra.Command {
	var userID, sessionID, invocationID string
	cmd := &cobra.Command{
		Use:   "rewind",
		Short: "Revert a session to its state before an invocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, &userID, func(ctx context.Context, a *app) error {
				return a.runner.Rewind(ctx, userID, sessionID, invocationID)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (defaults to the configured user)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID")
	cmd.Flags().StringVar(&invocationID, "invocation", "", "Invocation ID to rewind before")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("invocation")
	return cmd
}

func (a *app) listSessions(ctx context.Context, out io.Writer, userID string) error {
	sessions, err := a.runner.SessionService().ListSessions(ctx, a.cfg.AppName, userID)
	if err != nil {
		return err
	}
	slices.SortFunc(sessions, func(x, y types.Session) int {
		return y.LastUpdateTime().Compare(x.LastUpdateTime())
	})
	for _, ses := range sessions {
		fmt.Fprintf(out, "%s\t%s\n", ses.ID(), ses.LastUpdateTime().Format(time.RFC3339))
	}
	return nil
}

func (a *app) showSession(ctx context.Context, out io.Writer, userID, sessionID string) error {
	ses, err := a.runner.SessionService().GetSession(ctx, a.cfg.AppName, userID, sessionID, nil)
	if err != nil {
		return err
	}
	if ses == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}
	for _, event := range ses.Events() {
		if event.Author == types.AuthorUser && event.Text() != "" {
			// the invocation id is what rewind takes
			fmt.Fprintf(out, "[user %s] %s\n", event.InvocationID, event.Text())
			continue
		}
		if event.Actions != nil && event.Actions.Compaction != nil {
			fmt.Fprintln(out, "[compaction]")
			continue
		}
		if event.Actions != nil && event.Actions.RewindBeforeInvocationID != "" {
			fmt.Fprintf(out, "[rewind] before %s\n", event.Actions.RewindBeforeInvocationID)
			continue
		}
		printEvent(out, event)
	}
	return nil
}
