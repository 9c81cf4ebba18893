// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-a2a/agentflow/agent"
	"github.com/go-a2a/agentflow/artifact"
	"github.com/go-a2a/agentflow/config"
	"github.com/go-a2a/agentflow/memory"
	"github.com/go-a2a/agentflow/model"
	"github.com/go-a2a/agentflow/runner"
	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/tool/tools"
	"github.com/go-a2a/agentflow/types"
)

// app is a runner assembled from a [config.Config].
type app struct {
	cfg      *config.Config
	runner   *runner.Runner
	registry *prometheus.Registry
	closers  []func() error
}

// newApp builds the session backend, the agent and the runner of cfg.
//
// A non-nil llm replaces the model named by the configuration.
func newApp(ctx context.Context, cfg *config.Config, llm types.Model) (*app, error) {
	a := &app{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector())

	sessions, err := a.openSessionService(ctx)
	if err != nil {
		return nil, err
	}

	root, err := newRootAgent(ctx, cfg.Agent, llm)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []runner.Option{
		runner.WithArtifactService(artifact.NewInMemoryService()),
		runner.WithMemoryService(memory.NewInMemoryService()),
		runner.WithMetricsRegisterer(a.registry),
		runner.WithLogger(slog.Default()),
	}
	if cc := cfg.CompactionConfig(); cc != nil {
		opts = append(opts, runner.WithCompaction(*cc, nil))
	}
	a.runner, err = runner.NewRunner(cfg.AppName, root, sessions, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openSessionService(ctx context.Context) (types.SessionService, error) {
	var dialect session.Dialect
	switch a.cfg.Session.Backend {
	case config.BackendMemory:
		return session.NewInMemoryService(), nil
	case config.BackendSQLite:
		dialect = session.DialectSQLite
	case config.BackendPostgres:
		dialect = session.DialectPostgres
	default:
		return nil, types.NewConfigError("session backend %q is not supported", a.cfg.Session.Backend)
	}

	svc, err := session.OpenSQLService(ctx, dialect, a.cfg.Session.DSN, session.WithSQLLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("open %s sessions: %w", a.cfg.Session.Backend, err)
	}
	a.closers = append(a.closers, svc.Close)
	return svc, nil
}

func newRootAgent(ctx context.Context, cfg config.AgentConfig, llm types.Model) (*agent.LLMAgent, error) {
	agentTools, err := builtinTools(cfg.Tools)
	if err != nil {
		return nil, err
	}

	opts := []agent.LLMAgentOption{
		agent.WithInstruction(cfg.Instruction),
		agent.WithTools(agentTools...),
		agent.WithAgentOptions(
			types.WithDescription(cfg.Description),
			types.WithLogger(slog.Default()),
		),
	}
	if llm != nil {
		opts = append(opts, agent.WithModel(llm))
	} else {
		opts = append(opts, agent.WithModelName(cfg.Model, model.NewDefaultRegistry()))
	}
	if cfg.OutputKey != "" {
		opts = append(opts, agent.WithOutputKey(cfg.OutputKey))
	}
	return agent.NewLLMAgent(ctx, cfg.Name, opts...)
}

// builtinTools returns the tools named in names.
func builtinTools(names []string) ([]types.Tool, error) {
	out := make([]types.Tool, 0, len(names))
	for _, name := range names {
		switch name {
		case "load_memory":
			out = append(out, tools.NewLoadMemoryTool())
		case "preload_memory":
			out = append(out, tools.NewPreloadMemoryTool())
		case "load_artifacts":
			out = append(out, tools.NewLoadArtifactsTool())
		case "google_search":
			out = append(out, tools.NewGoogleSearchTool())
		case "get_user_choice":
			out = append(out, tools.NewGetUserChoiceTool())
		case "exit_loop":
			out = append(out, tools.NewExitLoopTool())
		default:
			return nil, types.NewConfigError("unknown tool %q", name)
		}
	}
	return out, nil
}

// serveMetrics serves /metrics on the configured address until ctx is done.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "metrics server failed", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func (a *app) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
