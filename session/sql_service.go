// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // pure Go sqlite driver
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/internal/pool"
	"github.com/go-a2a/agentflow/internal/telemetry"
	"github.com/go-a2a/agentflow/types"
)

// Dialect selects the SQL flavour and the database/sql driver name.
type Dialect string

const (
	// DialectSQLite uses modernc.org/sqlite.
	DialectSQLite Dialect = "sqlite"

	// DialectPostgres uses github.com/lib/pq.
	DialectPostgres Dialect = "postgres"
)

// ErrStaleSession is returned when appending to a session older than the stored one.
var ErrStaleSession = errors.New("session was modified after it was loaded")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		app_name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		id TEXT NOT NULL,
		state TEXT NOT NULL,
		create_time DOUBLE PRECISION NOT NULL,
		update_time DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (app_name, user_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL,
		app_name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		invocation_id TEXT NOT NULL,
		author TEXT NOT NULL,
		branch TEXT NOT NULL,
		event_timestamp DOUBLE PRECISION NOT NULL,
		content TEXT NOT NULL,
		actions TEXT NOT NULL,
		long_running_tool_ids TEXT NOT NULL,
		metadata TEXT NOT NULL,
		PRIMARY KEY (id, app_name, user_id, session_id)
	)`,
	`CREATE TABLE IF NOT EXISTS app_states (
		app_name TEXT NOT NULL PRIMARY KEY,
		state TEXT NOT NULL,
		update_time DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_states (
		app_name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		state TEXT NOT NULL,
		update_time DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (app_name, user_id)
	)`,
}

// SQLService is a [types.SessionService] backed by database/sql.
//
// Content, actions and state are stored as JSON text.
type SQLService struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ types.SessionService = (*SQLService)(nil)

// SQLOption configures a [SQLService].
type SQLOption func(*SQLService)

// WithSQLLogger sets the logger of the [SQLService].
func WithSQLLogger(logger *slog.Logger) SQLOption {
	return func(s *SQLService) {
		s.logger = logger
	}
}

// NewSQLService returns a [SQLService] using db.
//
// Call [SQLService.Migrate] before first use on a fresh database.
func NewSQLService(db *sql.DB, dialect Dialect, opts ...SQLOption) *SQLService {
	s := &SQLService{
		db:      db,
		dialect: dialect,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OpenSQLService opens dsn with the driver of dialect, pings it and creates the schema.
func OpenSQLService(ctx context.Context, dialect Dialect, dsn string, opts ...SQLOption) (*SQLService, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == DialectSQLite {
		// sqlite allows one writer and every in-memory connection is a new database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewSQLService(db, dialect, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *SQLService) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLService) Close() error {
	return s.db.Close()
}

// CreateSession implements [types.SessionService].
func (s *SQLService) CreateSession(ctx context.Context, appName, userID, sessionID string, state map[string]any) (types.Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.logger.InfoContext(ctx, "creating session",
		slog.String("app_name", appName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	var ses *session
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`),
			appName, userID, sessionID).Scan(&one)
		switch {
		case err == nil:
			return fmt.Errorf("session %s already exists for user %s in app %s", sessionID, userID, appName)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check session: %w", err)
		}

		appDelta, userDelta, sessionState := types.ExtractStateDelta(state)
		now := types.Now()
		appState, err := s.updateAppState(ctx, tx, appName, appDelta, now)
		if err != nil {
			return err
		}
		userState, err := s.updateUserState(ctx, tx, appName, userID, userDelta, now)
		if err != nil {
			return err
		}

		stateJSON, err := encodeJSON(sessionState)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO sessions (app_name, user_id, id, state, create_time, update_time) VALUES (?, ?, ?, ?, ?, ?)`),
			appName, userID, sessionID, stateJSON, toSeconds(now), toSeconds(now),
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		ses = newSession(appName, userID, sessionID, mergeScopedState(sessionState, appState, userState), now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ses, nil
}

// GetSession implements [types.SessionService].
//
// It returns nil without error when the session does not exist.
func (s *SQLService) GetSession(ctx context.Context, appName, userID, sessionID string, config *types.GetSessionConfig) (types.Session, error) {
	var (
		stateJSON  string
		updateTime float64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT state, update_time FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`),
		appName, userID, sessionID).Scan(&stateJSON, &updateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	sessionState, err := decodeState(stateJSON)
	if err != nil {
		return nil, err
	}
	appState, err := s.loadState(ctx, s.db, `SELECT state FROM app_states WHERE app_name = ?`, appName)
	if err != nil {
		return nil, err
	}
	userState, err := s.loadState(ctx, s.db, `SELECT state FROM user_states WHERE app_name = ? AND user_id = ?`, appName, userID)
	if err != nil {
		return nil, err
	}

	events, err := s.listEvents(ctx, appName, userID, sessionID, config)
	if err != nil {
		return nil, err
	}

	ses := newSession(appName, userID, sessionID, mergeScopedState(sessionState, appState, userState), fromSeconds(updateTime))
	ses.events = events
	return ses, nil
}

func (s *SQLService) listEvents(ctx context.Context, appName, userID, sessionID string, config *types.GetSessionConfig) ([]*types.Event, error) {
	sb := pool.String.Get()
	defer pool.String.Put(sb)

	sb.WriteString(`SELECT id, invocation_id, author, branch, event_timestamp, content, actions, long_running_tool_ids, metadata FROM events WHERE app_name = ? AND user_id = ? AND session_id = ?`)
	args := []any{appName, userID, sessionID}
	if config != nil && !config.AfterTimestamp.IsZero() {
		sb.WriteString(` AND event_timestamp >= ?`)
		args = append(args, toSeconds(config.AfterTimestamp))
	}
	sb.WriteString(` ORDER BY event_timestamp DESC`)
	if config != nil && config.NumRecentEvents > 0 {
		sb.WriteString(` LIMIT ` + strconv.Itoa(config.NumRecentEvents))
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(sb.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.id, &r.invocationID, &r.author, &r.branch, &r.timestamp, &r.content, &r.actions, &r.longRunningToolIDs, &r.metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := r.decode()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	slices.Reverse(events)
	return events, nil
}

// ListSessions implements [types.SessionService].
func (s *SQLService) ListSessions(ctx context.Context, appName, userID string) ([]types.Session, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, update_time FROM sessions WHERE app_name = ? AND user_id = ? ORDER BY id`),
		appName, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []types.Session{}
	for rows.Next() {
		var (
			id         string
			updateTime float64
		)
		if err := rows.Scan(&id, &updateTime); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, newSession(appName, userID, id, nil, fromSeconds(updateTime)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return out, nil
}

// DeleteSession implements [types.SessionService].
func (s *SQLService) DeleteSession(ctx context.Context, appName, userID, sessionID string) error {
	s.logger.InfoContext(ctx, "deleting session",
		slog.String("app_name", appName),
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM events WHERE app_name = ? AND user_id = ? AND session_id = ?`),
			appName, userID, sessionID); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`),
			appName, userID, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// AppendEvent implements [types.SessionService].
func (s *SQLService) AppendEvent(ctx context.Context, ses types.Session, event *types.Event) (*types.Event, error) {
	if event.IsPartial() {
		return event, nil
	}
	if event.Actions != nil {
		event.Actions.StateDelta = types.TrimTempDelta(event.Actions.StateDelta)
	}

	appName, userID, sessionID := ses.AppName(), ses.UserID(), ses.ID()
	row, err := encodeEvent(event)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			stateJSON  string
			updateTime float64
		)
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT state, update_time FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`),
			appName, userID, sessionID).Scan(&stateJSON, &updateTime)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session %s not found for user %s in app %s", sessionID, userID, appName)
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if fromSeconds(updateTime).After(ses.LastUpdateTime()) {
			return fmt.Errorf("append to session %s: %w", sessionID, ErrStaleSession)
		}

		if event.Actions != nil && len(event.Actions.StateDelta) > 0 {
			appDelta, userDelta, sessionDelta := types.ExtractStateDelta(event.Actions.StateDelta)
			if _, err := s.updateAppState(ctx, tx, appName, appDelta, event.Timestamp); err != nil {
				return err
			}
			if _, err := s.updateUserState(ctx, tx, appName, userID, userDelta, event.Timestamp); err != nil {
				return err
			}
			state, err := decodeState(stateJSON)
			if err != nil {
				return err
			}
			types.ApplyStateDelta(state, sessionDelta)
			if stateJSON, err = encodeJSON(state); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO events (id, app_name, user_id, session_id, invocation_id, author, branch, event_timestamp, content, actions, long_running_tool_ids, metadata) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			row.id, appName, userID, sessionID, row.invocationID, row.author, row.branch, row.timestamp,
			row.content, row.actions, row.longRunningToolIDs, row.metadata,
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE sessions SET state = ?, update_time = ? WHERE app_name = ? AND user_id = ? AND id = ?`),
			stateJSON, row.timestamp, appName, userID, sessionID,
		); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applyEventToSession(ses, event)
	telemetry.FromContext(ctx).EventAppended(appName)

	return event, nil
}

func (s *SQLService) updateAppState(ctx context.Context, tx *sql.Tx, appName string, delta map[string]any, now time.Time) (map[string]any, error) {
	state, err := s.loadState(ctx, tx, `SELECT state FROM app_states WHERE app_name = ?`, appName)
	if err != nil || len(delta) == 0 {
		return state, err
	}

	types.ApplyStateDelta(state, delta)
	stateJSON, err := encodeJSON(state)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO app_states (app_name, state, update_time) VALUES (?, ?, ?)
		ON CONFLICT (app_name) DO UPDATE SET state = excluded.state, update_time = excluded.update_time`),
		appName, stateJSON, toSeconds(now)); err != nil {
		return nil, fmt.Errorf("upsert app state: %w", err)
	}
	return state, nil
}

func (s *SQLService) updateUserState(ctx context.Context, tx *sql.Tx, appName, userID string, delta map[string]any, now time.Time) (map[string]any, error) {
	state, err := s.loadState(ctx, tx, `SELECT state FROM user_states WHERE app_name = ? AND user_id = ?`, appName, userID)
	if err != nil || len(delta) == 0 {
		return state, err
	}

	types.ApplyStateDelta(state, delta)
	stateJSON, err := encodeJSON(state)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO user_states (app_name, user_id, state, update_time) VALUES (?, ?, ?, ?)
		ON CONFLICT (app_name, user_id) DO UPDATE SET state = excluded.state, update_time = excluded.update_time`),
		appName, userID, stateJSON, toSeconds(now)); err != nil {
		return nil, fmt.Errorf("upsert user state: %w", err)
	}
	return state, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// loadState returns the decoded state selected by query, or an empty map.
func (s *SQLService) loadState(ctx context.Context, q queryRower, query string, args ...any) (map[string]any, error) {
	var stateJSON string
	err := q.QueryRowContext(ctx, s.rebind(query), args...).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return decodeState(stateJSON)
}

func (s *SQLService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WarnContext(ctx, "rollback failed", slog.Any("error", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLService) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	sb := pool.String.Get()
	defer pool.String.Put(sb)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// eventRow is the column form of an event.
type eventRow struct {
	id                 string
	invocationID       string
	author             string
	branch             string
	timestamp          float64
	content            string
	actions            string
	longRunningToolIDs string
	metadata           string
}

// eventMetadata holds the response fields without a dedicated column.
type eventMetadata struct {
	TurnComplete      bool                                       `json:"turn_complete,omitempty"`
	Interrupted       bool                                       `json:"interrupted,omitempty"`
	ErrorCode         string                                     `json:"error_code,omitempty"`
	ErrorMessage      string                                     `json:"error_message,omitempty"`
	FinishReason      genai.FinishReason                         `json:"finish_reason,omitempty"`
	GroundingMetadata *genai.GroundingMetadata                   `json:"grounding_metadata,omitempty"`
	UsageMetadata     *genai.GenerateContentResponseUsageMetadata `json:"usage_metadata,omitempty"`
	CustomMetadata    map[string]any                             `json:"custom_metadata,omitempty"`
}

func encodeEvent(ev *types.Event) (*eventRow, error) {
	resp := ev.LLMResponse
	if resp == nil {
		resp = &types.LLMResponse{}
	}

	content, err := encodeJSON(resp.Content)
	if err != nil {
		return nil, err
	}
	actions, err := encodeJSON(ev.Actions)
	if err != nil {
		return nil, err
	}
	ids, err := encodeJSON(ev.LongRunningToolIDs)
	if err != nil {
		return nil, err
	}
	meta, err := encodeJSON(&eventMetadata{
		TurnComplete:      resp.TurnComplete,
		Interrupted:       resp.Interrupted,
		ErrorCode:         resp.ErrorCode,
		ErrorMessage:      resp.ErrorMessage,
		FinishReason:      resp.FinishReason,
		GroundingMetadata: resp.GroundingMetadata,
		UsageMetadata:     resp.UsageMetadata,
		CustomMetadata:    resp.CustomMetadata,
	})
	if err != nil {
		return nil, err
	}

	return &eventRow{
		id:                 ev.ID,
		invocationID:       ev.InvocationID,
		author:             ev.Author,
		branch:             ev.Branch,
		timestamp:          toSeconds(ev.Timestamp),
		content:            content,
		actions:            actions,
		longRunningToolIDs: ids,
		metadata:           meta,
	}, nil
}

func (r *eventRow) decode() (*types.Event, error) {
	var content *genai.Content
	if err := decodeJSON(r.content, &content); err != nil {
		return nil, fmt.Errorf("decode event %s content: %w", r.id, err)
	}
	actions := types.NewEventActions()
	if err := decodeJSON(r.actions, &actions); err != nil {
		return nil, fmt.Errorf("decode event %s actions: %w", r.id, err)
	}
	if actions == nil {
		actions = types.NewEventActions()
	}
	var ids []string
	if err := decodeJSON(r.longRunningToolIDs, &ids); err != nil {
		return nil, fmt.Errorf("decode event %s long running tool ids: %w", r.id, err)
	}
	var meta eventMetadata
	if err := decodeJSON(r.metadata, &meta); err != nil {
		return nil, fmt.Errorf("decode event %s metadata: %w", r.id, err)
	}

	ev := &types.Event{
		LLMResponse: &types.LLMResponse{
			Content:           content,
			GroundingMetadata: meta.GroundingMetadata,
			UsageMetadata:     meta.UsageMetadata,
			FinishReason:      meta.FinishReason,
			TurnComplete:      meta.TurnComplete,
			ErrorCode:         meta.ErrorCode,
			ErrorMessage:      meta.ErrorMessage,
			Interrupted:       meta.Interrupted,
			CustomMetadata:    meta.CustomMetadata,
		},
		InvocationID:       r.invocationID,
		Author:             r.author,
		Actions:            actions,
		LongRunningToolIDs: ids,
		Branch:             r.branch,
		ID:                 r.id,
		Timestamp:          fromSeconds(r.timestamp),
	}
	return ev, nil
}

func encodeJSON(v any) (string, error) {
	s, err := sonic.ConfigFastest.MarshalToString(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return s, nil
}

func decodeJSON(s string, v any) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sonic.ConfigFastest.UnmarshalFromString(s, v)
}

func decodeState(s string) (map[string]any, error) {
	state := make(map[string]any)
	if err := decodeJSON(s, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state == nil {
		state = make(map[string]any)
	}
	return state, nil
}

// toSeconds converts t to float seconds since the epoch with microsecond precision.
func toSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func fromSeconds(f float64) time.Time {
	return time.UnixMicro(int64(math.Round(f * 1e6)))
}
