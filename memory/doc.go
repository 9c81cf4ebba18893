// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides a [types.MemoryService] that recalls past sessions.
//
// [InMemoryService] indexes the text of session events and answers searches
// by keyword overlap. It is meant for development and tests:
//
//	mem := memory.NewInMemoryService()
//	if err := mem.AddSessionToMemory(ctx, ses); err != nil {
//		return err
//	}
//	resp, err := mem.SearchMemory(ctx, "app", "user", "favourite colour")
package memory
