// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/go-a2a/agentflow/internal/telemetry"
	"github.com/go-a2a/agentflow/types"
)

// InMemoryService is an in-memory implementation of the [types.SessionService].
type InMemoryService struct {
	// sessions is a map from app name to a map from user ID to a map from session ID to session.
	sessions map[string]map[string]map[string]*session

	// userState is a map from app name to a map from user ID to a map from key to value.
	userState map[string]map[string]map[string]any

	// appState is a map from app name to a map from key to value.
	appState map[string]map[string]any

	logger *slog.Logger
	mu     sync.RWMutex
}

var _ types.SessionService = (*InMemoryService)(nil)

// InMemoryOption configures an [InMemoryService].
type InMemoryOption func(*InMemoryService)

// WithInMemoryLogger sets the logger of the [InMemoryService].
func WithInMemoryLogger(logger *slog.Logger) InMemoryOption {
	return func(s *InMemoryService) {
		s.logger = logger
	}
}

// NewInMemoryService creates a new [InMemoryService].
func NewInMemoryService(opts ...InMemoryOption) *InMemoryService {
	s := &InMemoryService{
		sessions:  make(map[string]map[string]map[string]*session),
		userState: make(map[string]map[string]map[string]any),
		appState:  make(map[string]map[string]any),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateSession implements [types.SessionService].
func (s *InMemoryService) CreateSession(ctx context.Context, appName, userID, sessionID string, state map[string]any) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if s.lookup(appName, userID, sessionID) != nil {
		return nil, fmt.Errorf("session %s already exists for user %s in app %s", sessionID, userID, appName)
	}

	s.logger.InfoContext(ctx, "creating session",
		slog.String("app_name", appName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	appDelta, userDelta, sessionState := types.ExtractStateDelta(state)
	s.applyScopedDelta(appName, userID, appDelta, userDelta)

	ses := newSession(appName, userID, sessionID, sessionState, types.Now())
	if _, ok := s.sessions[appName]; !ok {
		s.sessions[appName] = make(map[string]map[string]*session)
	}
	if _, ok := s.sessions[appName][userID]; !ok {
		s.sessions[appName][userID] = make(map[string]*session)
	}
	s.sessions[appName][userID][sessionID] = ses

	return s.mergeState(ses.clone(nil)), nil
}

// GetSession implements [types.SessionService].
//
// It returns nil without error when the session does not exist.
func (s *InMemoryService) GetSession(ctx context.Context, appName, userID, sessionID string, config *types.GetSessionConfig) (types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.logger.DebugContext(ctx, "getting session",
		slog.String("app_name", appName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	ses := s.lookup(appName, userID, sessionID)
	if ses == nil {
		return nil, nil
	}

	return s.mergeState(ses.clone(config)), nil
}

// ListSessions implements [types.SessionService].
func (s *InMemoryService) ListSessions(ctx context.Context, appName, userID string) ([]types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.sessions[appName][userID]
	out := make([]types.Session, 0, len(byID))
	for _, ses := range byID {
		c := newSession(ses.appName, ses.userID, ses.id, nil, ses.LastUpdateTime())
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b types.Session) int {
		return cmp.Compare(a.ID(), b.ID())
	})

	return out, nil
}

// DeleteSession implements [types.SessionService].
func (s *InMemoryService) DeleteSession(ctx context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(appName, userID, sessionID) == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "deleting session",
		slog.String("app_name", appName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	delete(s.sessions[appName][userID], sessionID)

	return nil
}

// AppendEvent implements [types.SessionService].
func (s *InMemoryService) AppendEvent(ctx context.Context, ses types.Session, event *types.Event) (*types.Event, error) {
	if event.IsPartial() {
		return event, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appName, userID, sessionID := ses.AppName(), ses.UserID(), ses.ID()
	s.logger.DebugContext(ctx, "appending event",
		slog.String("app_name", appName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
		slog.String("event_id", event.ID),
		slog.String("author", event.Author),
	)

	applyEventToSession(ses, event)

	stored := s.lookup(appName, userID, sessionID)
	if stored == nil {
		s.logger.WarnContext(ctx, "appending event to unknown session", slog.String("session_id", sessionID))
		return event, nil
	}

	if event.Actions != nil {
		appDelta, userDelta, sessionDelta := types.ExtractStateDelta(event.Actions.StateDelta)
		s.applyScopedDelta(appName, userID, appDelta, userDelta)
		stored.ApplyStateDelta(sessionDelta)
	}
	stored.AddEvent(event)
	stored.SetLastUpdateTime(event.Timestamp)

	telemetry.FromContext(ctx).EventAppended(appName)

	return event, nil
}

func (s *InMemoryService) lookup(appName, userID, sessionID string) *session {
	return s.sessions[appName][userID][sessionID]
}

func (s *InMemoryService) applyScopedDelta(appName, userID string, appDelta, userDelta map[string]any) {
	if len(appDelta) > 0 {
		if _, ok := s.appState[appName]; !ok {
			s.appState[appName] = make(map[string]any)
		}
		types.ApplyStateDelta(s.appState[appName], appDelta)
	}
	if len(userDelta) > 0 {
		if _, ok := s.userState[appName]; !ok {
			s.userState[appName] = make(map[string]map[string]any)
		}
		if _, ok := s.userState[appName][userID]; !ok {
			s.userState[appName][userID] = make(map[string]any)
		}
		types.ApplyStateDelta(s.userState[appName][userID], userDelta)
	}
}

// mergeState merges app and user state into the state of ses.
func (s *InMemoryService) mergeState(ses *session) *session {
	ses.state = mergeScopedState(ses.state, s.appState[ses.appName], s.userState[ses.appName][ses.userID])
	return ses
}
