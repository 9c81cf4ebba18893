// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package session_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/agentflow/session"
	"github.com/go-a2a/agentflow/types"
)

func openSQLite(t *testing.T) *session.SQLService {
	t.Helper()

	svc, err := session.OpenSQLService(context.Background(), session.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestSQLServiceRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openSQLite(t)

	ses, err := svc.CreateSession(ctx, "app", "u", "s", map[string]any{"k": "v0", "app:a": "shared"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateSession(ctx, "app", "u", "s", nil); err == nil {
		t.Fatal("expected an error for a duplicate session id")
	}

	created := ses.LastUpdateTime()
	user := textEvent("inv1", types.AuthorUser, "hi", 0)
	user.Timestamp = created.Add(time.Second)
	reply := withDelta(textEvent("inv1", "agent", "hello", 0), map[string]any{
		"k":      "v1",
		"user:p": "pref",
		"temp:t": "scratch",
	})
	reply.Timestamp = created.Add(2 * time.Second)
	reply.Actions.ArtifactDelta = map[string]int{"f.txt": 0}
	reply.LongRunningToolIDs = []string{"call-1"}
	reply.TurnComplete = true

	for _, ev := range []*types.Event{user, reply} {
		if _, err := svc.AppendEvent(ctx, ses, ev); err != nil {
			t.Fatalf("AppendEvent(%s): %v", ev.ID, err)
		}
	}

	got, err := svc.GetSession(ctx, "app", "u", "s", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("GetSession returned nil")
	}

	wantState := map[string]any{"k": "v1", "app:a": "shared", "user:p": "pref"}
	if diff := cmp.Diff(wantState, got.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if !got.LastUpdateTime().Equal(reply.Timestamp) {
		t.Errorf("LastUpdateTime = %v, want %v", got.LastUpdateTime(), reply.Timestamp)
	}

	events := got.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	last := events[1]
	if last.ID != reply.ID || last.Author != "agent" || last.InvocationID != "inv1" {
		t.Errorf("event identity mismatch: %+v", last)
	}
	if !last.Timestamp.Equal(reply.Timestamp) {
		t.Errorf("timestamp = %v, want %v", last.Timestamp, reply.Timestamp)
	}
	if last.Content == nil || len(last.Content.Parts) != 1 || last.Content.Parts[0].Text != "hello" {
		t.Errorf("content = %+v", last.Content)
	}
	if !last.TurnComplete {
		t.Error("TurnComplete not persisted")
	}
	if diff := cmp.Diff([]string{"call-1"}, last.LongRunningToolIDs); diff != "" {
		t.Errorf("long running ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"f.txt": 0}, last.Actions.ArtifactDelta); diff != "" {
		t.Errorf("artifact delta (-want +got):\n%s", diff)
	}
	if _, ok := last.Actions.StateDelta["temp:t"]; ok {
		t.Error("temp key persisted")
	}

	recent, err := svc.GetSession(ctx, "app", "u", "s", &types.GetSessionConfig{NumRecentEvents: 1})
	if err != nil {
		t.Fatal(err)
	}
	if evs := recent.Events(); len(evs) != 1 || evs[0].ID != reply.ID {
		t.Errorf("NumRecentEvents=1 returned %d events", len(evs))
	}

	list, err := svc.ListSessions(ctx, "app", "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID() != "s" {
		t.Errorf("ListSessions = %v", list)
	}

	if err := svc.DeleteSession(ctx, "app", "u", "s"); err != nil {
		t.Fatal(err)
	}
	if got, err := svc.GetSession(ctx, "app", "u", "s", nil); err != nil || got != nil {
		t.Errorf("GetSession after delete = %v, %v", got, err)
	}
}

func TestSQLServiceStaleSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := openSQLite(t)

	stale, err := svc.CreateSession(ctx, "app", "u", "s", nil)
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := svc.GetSession(ctx, "app", "u", "s", nil)
	if err != nil {
		t.Fatal(err)
	}

	ev := textEvent("inv1", "agent", "first", 0)
	ev.Timestamp = stale.LastUpdateTime().Add(time.Second)
	if _, err := svc.AppendEvent(ctx, fresh, ev); err != nil {
		t.Fatal(err)
	}

	late := textEvent("inv2", "agent", "late", 0)
	late.Timestamp = stale.LastUpdateTime().Add(2 * time.Second)
	_, err = svc.AppendEvent(ctx, stale, late)
	if !errors.Is(err, session.ErrStaleSession) {
		t.Fatalf("AppendEvent on stale session error = %v, want ErrStaleSession", err)
	}
}

func TestSQLServicePartialEventIgnored(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	svc := session.NewSQLService(db, session.DialectSQLite)
	ev := textEvent("inv", "agent", "par", 0)
	ev.Partial = true
	ses := session.NewSession("app", "u", "s", nil, baseTime)

	if _, err := svc.AppendEvent(context.Background(), ses, ev); err != nil {
		t.Fatal(err)
	}
	if len(ses.Events()) != 0 {
		t.Error("partial event appended")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}

func TestSQLServiceErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := map[string]struct {
		dialect session.Dialect
		setup   func(mock sqlmock.Sqlmock)
		run     func(ctx context.Context, svc *session.SQLService) error
		wantErr string
	}{
		"get session query error": {
			dialect: session.DialectSQLite,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT state, update_time FROM sessions")).WillReturnError(boom)
			},
			run: func(ctx context.Context, svc *session.SQLService) error {
				_, err := svc.GetSession(ctx, "app", "u", "s", nil)
				return err
			},
			wantErr: "get session",
		},
		"postgres placeholders": {
			dialect: session.DialectPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("WHERE app_name = $1 AND user_id = $2 AND id = $3")).
					WithArgs("app", "u", "s").
					WillReturnRows(sqlmock.NewRows([]string{"state", "update_time"}))
			},
			run: func(ctx context.Context, svc *session.SQLService) error {
				got, err := svc.GetSession(ctx, "app", "u", "s", nil)
				if err == nil && got != nil {
					return errors.New("expected no session")
				}
				return err
			},
		},
		"append to missing session": {
			dialect: session.DialectSQLite,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("SELECT state, update_time FROM sessions")).
					WillReturnRows(sqlmock.NewRows([]string{"state", "update_time"}))
				mock.ExpectRollback()
			},
			run: func(ctx context.Context, svc *session.SQLService) error {
				ses := session.NewSession("app", "u", "s", nil, baseTime)
				_, err := svc.AppendEvent(ctx, ses, textEvent("inv", "agent", "x", 0))
				return err
			},
			wantErr: "not found",
		},
		"insert event error": {
			dialect: session.DialectSQLite,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("SELECT state, update_time FROM sessions")).
					WillReturnRows(sqlmock.NewRows([]string{"state", "update_time"}).AddRow("{}", 0.0))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).WillReturnError(boom)
				mock.ExpectRollback()
			},
			run: func(ctx context.Context, svc *session.SQLService) error {
				ses := session.NewSession("app", "u", "s", nil, baseTime)
				_, err := svc.AppendEvent(ctx, ses, textEvent("inv", "agent", "x", 0))
				return err
			},
			wantErr: "insert event",
		},
		"begin error": {
			dialect: session.DialectSQLite,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(boom)
			},
			run: func(ctx context.Context, svc *session.SQLService) error {
				return svc.DeleteSession(ctx, "app", "u", "s")
			},
			wantErr: "begin transaction",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()

			tt.setup(mock)
			err = tt.run(context.Background(), session.NewSQLService(db, tt.dialect))
			switch {
			case tt.wantErr == "" && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("expectations: %v", err)
			}
		})
	}
}
