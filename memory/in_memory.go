// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/go-a2a/agentflow/internal/xmaps"
	"github.com/go-a2a/agentflow/types"
)

type userKey struct {
	appName string
	userID  string
}

// InMemoryService is a keyword matching [types.MemoryService] for prototyping.
//
// Adding a session again replaces its previously stored events.
type InMemoryService struct {
	// sessionEvents maps a user to session ids to the events with content.
	sessionEvents map[userKey]map[string][]*types.Event
	logger        *slog.Logger
	mu            sync.RWMutex
}

var _ types.MemoryService = (*InMemoryService)(nil)

// Option configures an [InMemoryService].
type Option func(*InMemoryService)

// WithLogger sets the logger of the [InMemoryService].
func WithLogger(logger *slog.Logger) Option {
	return func(s *InMemoryService) {
		s.logger = logger
	}
}

// NewInMemoryService creates a new [InMemoryService].
func NewInMemoryService(opts ...Option) *InMemoryService {
	s := &InMemoryService{
		sessionEvents: make(map[userKey]map[string][]*types.Event),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSessionToMemory implements [types.MemoryService].
func (s *InMemoryService) AddSessionToMemory(ctx context.Context, session types.Session) error {
	var events []*types.Event
	for _, ev := range session.Events() {
		if ev.HasContent() {
			events = append(events, ev)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey{appName: session.AppName(), userID: session.UserID()}
	if !xmaps.Contains(s.sessionEvents, key) {
		s.sessionEvents[key] = make(map[string][]*types.Event)
	}
	s.sessionEvents[key][session.ID()] = events

	s.logger.DebugContext(ctx, "added session to memory",
		slog.String("session_id", session.ID()),
		slog.Int("events", len(events)),
	)

	return nil
}

// SearchMemory implements [types.MemoryService].
//
// An event matches when it shares at least one word with query, ignoring case.
// Results are ordered by timestamp.
func (s *InMemoryService) SearchMemory(ctx context.Context, appName, userID, query string) (*types.SearchMemoryResponse, error) {
	queryWords := words(query)
	resp := &types.SearchMemoryResponse{Memories: []*types.MemoryEntry{}}
	if len(queryWords) == 0 {
		return resp, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, events := range s.sessionEvents[userKey{appName: appName, userID: userID}] {
		for _, ev := range events {
			if !matches(words(eventText(ev)), queryWords) {
				continue
			}
			resp.Memories = append(resp.Memories, &types.MemoryEntry{
				Content:   ev.Content,
				Author:    ev.Author,
				Timestamp: ev.Timestamp,
			})
		}
	}
	slices.SortStableFunc(resp.Memories, func(a, b *types.MemoryEntry) int {
		return cmp.Compare(a.Timestamp.UnixMicro(), b.Timestamp.UnixMicro())
	})

	return resp, nil
}

func eventText(ev *types.Event) string {
	var sb strings.Builder
	for _, part := range ev.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// words returns the set of lower-cased words of text.
func words(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func matches(eventWords, queryWords map[string]struct{}) bool {
	for w := range queryWords {
		if xmaps.Contains(eventWords, w) {
			return true
		}
	}
	return false
}
