// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"bytes"
	"strings"
	"sync"
)

// Pool is a typed [sync.Pool].
type Pool[T any] struct {
	p     sync.Pool
	reset func(T)
}

// New returns a Pool that allocates with alloc and clears values with reset
// before they are handed out again. reset may be nil.
func New[T any](alloc func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.p.New = func() any { return alloc() }
	return p
}

// Get returns a cleared value.
func (p *Pool[T]) Get() T {
	return p.p.Get().(T)
}

// Put hands v back to the pool.
func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.p.Put(v)
}

// Buffer pools [*bytes.Buffer] values.
var Buffer = New(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

// String pools [*strings.Builder] values.
var String = New(
	func() *strings.Builder { return new(strings.Builder) },
	func(sb *strings.Builder) { sb.Reset() },
)
