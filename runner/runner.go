// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/artifact"
	"github.com/go-a2a/agentflow/internal/telemetry"
	"github.com/go-a2a/agentflow/memory"
	"github.com/go-a2a/agentflow/pkg/logging"
	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

// Runner runs an agent tree for the sessions of one app.
type Runner struct {
	appName         string
	agent           types.Agent
	sessionService  types.SessionService
	artifactService types.ArtifactService
	memoryService   types.MemoryService

	compaction *session.CompactionConfig
	summarizer session.Summarizer

	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Option configures a [Runner].
type Option func(*Runner) error

// WithArtifactService sets the artifact service made available to agents.
func WithArtifactService(svc types.ArtifactService) Option {
	return func(r *Runner) error {
		r.artifactService = svc
		return nil
	}
}

// WithMemoryService sets the memory service made available to agents.
func WithMemoryService(svc types.MemoryService) Option {
	return func(r *Runner) error {
		r.memoryService = svc
		return nil
	}
}

// WithCompaction compacts the session after each run.
//
// A nil summarizer summarizes with the model of the root agent.
func WithCompaction(cfg session.CompactionConfig, summarizer session.Summarizer) Option {
	return func(r *Runner) error {
		if cfg.Interval <= 0 {
			return types.NewConfigError("compaction interval must be positive, got %d", cfg.Interval)
		}
		if cfg.OverlapSize < 0 {
			return types.NewConfigError("compaction overlap must not be negative, got %d", cfg.OverlapSize)
		}
		r.compaction = &cfg
		r.summarizer = summarizer
		return nil
	}
}

// WithMetricsRegisterer records runtime metrics on reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(r *Runner) error {
		m, err := telemetry.NewMetrics(reg)
		if err != nil {
			return err
		}
		r.metrics = m
		return nil
	}
}

// WithLogger sets the logger of the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// NewRunner returns a runner of agent for appName backed by sessionService.
func NewRunner(appName string, agent types.Agent, sessionService types.SessionService, opts ...Option) (*Runner, error) {
	if appName == "" {
		return nil, types.NewConfigError("runner requires an app name")
	}
	if agent == nil {
		return nil, types.NewConfigError("runner requires an agent")
	}
	if sessionService == nil {
		return nil, types.NewConfigError("runner requires a session service")
	}

	r := &Runner{
		appName:        appName,
		agent:          agent,
		sessionService: sessionService,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With(slog.String("app_name", appName))

	return r, nil
}

// NewInMemoryRunner returns a runner backed by in-memory session, artifact and memory services.
func NewInMemoryRunner(appName string, agent types.Agent, opts ...Option) (*Runner, error) {
	opts = append([]Option{
		WithArtifactService(artifact.NewInMemoryService()),
		WithMemoryService(memory.NewInMemoryService()),
	}, opts...)
	return NewRunner(appName, agent, session.NewInMemoryService(), opts...)
}

// AppName returns the app the runner serves.
func (r *Runner) AppName() string { return r.appName }

// SessionService returns the session service of the runner.
func (r *Runner) SessionService() types.SessionService { return r.sessionService }

// Run appends newMessage to the session and runs the agent that should answer it.
//
// The session is created when it does not exist. Every event is yielded,
// and every non-partial one is persisted before it is yielded. A nil
// runConfig selects [types.NewRunConfig].
func (r *Runner) Run(ctx context.Context, userID, sessionID string, newMessage *genai.Content, runConfig *types.RunConfig) iter.Seq2[*types.Event, error] {
	return func(yield func(*types.Event, error) bool) {
		ses, err := r.loadSession(ctx, userID, sessionID)
		if err != nil {
			yield(nil, err)
			return
		}
		if runConfig == nil {
			runConfig = types.NewRunConfig()
		}

		ictx := types.NewInvocationContext(r.agent, ses, r.sessionService,
			types.WithArtifactService(r.artifactService),
			types.WithMemoryService(r.memoryService),
			types.WithRunConfig(runConfig),
		)
		logger := r.logger.With(
			slog.String("user_id", userID),
			slog.String("session_id", ses.ID()),
			slog.String("invocation_id", ictx.InvocationID),
		)
		ctx := logging.NewContext(ctx, logger)
		if r.metrics != nil {
			ctx = telemetry.NewContext(ctx, r.metrics)
		}

		if newMessage != nil {
			if err := r.appendNewMessage(ctx, ictx, newMessage); err != nil {
				yield(nil, err)
				return
			}
		}

		agent := r.findAgentToRun(ses)
		ictx = ictx.WithAgent(agent)
		logger.DebugContext(ctx, "running agent", slog.String("agent", agent.Name()))

		for event, err := range agent.Run(ctx, ictx) {
			if err != nil {
				if types.IsAbort(err) {
					yield(nil, err)
					return
				}
				// agent logic failed: end the run with a well-formed error event
				event = types.NewAgentErrorEvent(ictx.InvocationID, agent.Name(), err)
				if _, err := r.sessionService.AppendEvent(ctx, ses, event); err != nil {
					yield(nil, fmt.Errorf("append event: %w", err))
					return
				}
				yield(event, nil)
				return
			}
			if !event.IsPartial() {
				if event.Actions != nil {
					ictx.RecordTempState(event.Actions.StateDelta)
				}
				if _, err := r.sessionService.AppendEvent(ctx, ses, event); err != nil {
					yield(nil, fmt.Errorf("append event: %w", err))
					return
				}
			}
			if !yield(event, nil) {
				return
			}
		}

		if err := r.compact(ctx, ses); err != nil {
			// the invocation itself succeeded; the next run retries the compaction
			logger.WarnContext(ctx, "compaction failed", slog.Any("error", err))
		}
	}
}

// Rewind reverts the session to its state before invocationID.
func (r *Runner) Rewind(ctx context.Context, userID, sessionID, invocationID string) error {
	ses, err := r.sessionService.GetSession(ctx, r.appName, userID, sessionID, nil)
	if err != nil {
		return err
	}
	if ses == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}

	ctx = logging.NewContext(ctx, r.logger.With(
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	))
	_, err = session.Rewind(ctx, r.sessionService, r.artifactService, ses, invocationID)
	return err
}

// AddSessionToMemory ingests the session into the memory service.
func (r *Runner) AddSessionToMemory(ctx context.Context, userID, sessionID string) error {
	if r.memoryService == nil {
		return errors.New("memory service is not configured")
	}
	ses, err := r.sessionService.GetSession(ctx, r.appName, userID, sessionID, nil)
	if err != nil {
		return err
	}
	if ses == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return r.memoryService.AddSessionToMemory(ctx, ses)
}

func (r *Runner) loadSession(ctx context.Context, userID, sessionID string) (types.Session, error) {
	if sessionID != "" {
		ses, err := r.sessionService.GetSession(ctx, r.appName, userID, sessionID, nil)
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		if ses != nil {
			return ses, nil
		}
	}

	ses, err := r.sessionService.CreateSession(ctx, r.appName, userID, sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	r.logger.InfoContext(ctx, "created session",
		slog.String("user_id", userID),
		slog.String("session_id", ses.ID()),
	)
	return ses, nil
}

// appendNewMessage persists the user message, saving its inline blobs as
// artifacts first when the run config asks for it.
func (r *Runner) appendNewMessage(ctx context.Context, ictx *types.InvocationContext, newMessage *genai.Content) error {
	if len(newMessage.Parts) == 0 {
		return errors.New("no parts in the new message")
	}

	content := &genai.Content{Role: newMessage.Role, Parts: append([]*genai.Part(nil), newMessage.Parts...)}
	if ictx.RunConfig.SaveInputBlobsAsArtifacts && r.artifactService != nil {
		if err := r.saveInputBlobs(ctx, ictx, content); err != nil {
			return err
		}
	}
	ictx.UserContent = content

	event := types.NewEvent().
		WithInvocationID(ictx.InvocationID).
		WithAuthor(types.AuthorUser).
		WithContent(content)
	if _, err := r.sessionService.AppendEvent(ctx, ictx.Session, event); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	return nil
}

func (r *Runner) saveInputBlobs(ctx context.Context, ictx *types.InvocationContext, content *genai.Content) error {
	for i, part := range content.Parts {
		if part == nil || part.InlineData == nil {
			continue
		}
		filename := "artifact_" + ictx.InvocationID + "_" + strconv.Itoa(i)
		if _, err := r.artifactService.SaveArtifact(ctx, r.appName, ictx.UserID(), ictx.Session.ID(), filename, part); err != nil {
			return fmt.Errorf("save input blob %s: %w", filename, err)
		}
		content.Parts[i] = genai.NewPartFromText("Uploaded file: " + filename + ". It is saved into artifacts")
	}
	return nil
}

// findAgentToRun returns the agent that produced the latest agent reply of
// ses, provided the model may transfer away from it again. Otherwise the
// root agent answers.
func (r *Runner) findAgentToRun(ses types.Session) types.Agent {
	events := ses.Events()
	for i := len(events) - 1; i >= 0; i-- {
		author := events[i].Author
		if author == types.AuthorUser {
			continue
		}
		if author == r.agent.Name() {
			return r.agent
		}
		agent := r.agent.FindSubAgent(author)
		if agent == nil {
			r.logger.Warn("event author not found in agent tree", slog.String("author", author))
			continue
		}
		if isTransferableAcrossAgentTree(agent) {
			return agent
		}
	}
	return r.agent
}

// isTransferableAcrossAgentTree reports whether agent and all its ancestors
// are LLM agents allowing transfer to their parent.
func isTransferableAcrossAgentTree(agent types.Agent) bool {
	for a := agent; a != nil; a = a.ParentAgent() {
		llmAgent, ok := a.AsLLMAgent()
		if !ok || llmAgent.DisallowTransferToParent() {
			return false
		}
	}
	return true
}

func (r *Runner) compact(ctx context.Context, ses types.Session) error {
	if r.compaction == nil {
		return nil
	}

	summarizer := r.summarizer
	if summarizer == nil {
		llmAgent, ok := r.agent.AsLLMAgent()
		if !ok {
			return errors.New("compaction without a summarizer requires an LLM root agent")
		}
		model, err := llmAgent.CanonicalModel(ctx)
		if err != nil {
			return err
		}
		summarizer = session.NewLLMEventSummarizer(model, "")
	}

	_, err := session.Compact(ctx, r.sessionService, ses, *r.compaction, summarizer)
	return err
}
