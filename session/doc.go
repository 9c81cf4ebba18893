// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements [types.SessionService] and the operations that
// rewrite a session's history.
//
// Sessions are addressed by (app name, user id, session id) and hold an
// ordered event log plus a state map. State keys are routed by prefix:
//
//	key          session scoped, stored with the session
//	app:key      shared by every session of the app
//	user:key     shared by every session of the user
//	temp:key     visible during one invocation, never persisted
//
// App and user state are merged into a session's state when it is read.
//
// # Services
//
// [InMemoryService] keeps everything in process memory. [SQLService] stores
// sessions in sqlite or PostgreSQL through database/sql:
//
//	svc, err := session.OpenSQLService(ctx, session.DialectSQLite, "file:sessions.db")
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
// Both services return snapshots; appending an event updates the session
// passed to AppendEvent and the stored copy. Partial events are ignored.
//
// # Compaction
//
// [Compact] summarizes the oldest invocations into one event carrying a
// [types.EventCompaction] once [CompactionConfig.Interval] new invocations
// have been recorded since the last compaction. The summarized window reaches
// back [CompactionConfig.OverlapSize] invocations so consecutive summaries
// overlap. The original events stay in the log.
//
// # Rewind
//
// [Rewind] appends an event that restores session state and artifacts to the
// point before an invocation. History is never deleted.
package session
