// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pool_test

import (
	"testing"

	"github.com/go-a2a/agentflow/internal/pool"
)

func TestPoolResetsOnPut(t *testing.T) {
	t.Parallel()

	sb := pool.String.Get()
	sb.WriteString("stale")
	pool.String.Put(sb)
	if sb.Len() != 0 {
		t.Errorf("builder length after Put = %d, want 0", sb.Len())
	}

	buf := pool.Buffer.Get()
	buf.WriteString("stale")
	pool.Buffer.Put(buf)
	if buf.Len() != 0 {
		t.Errorf("buffer length after Put = %d, want 0", buf.Len())
	}
}

func TestNewWithoutReset(t *testing.T) {
	t.Parallel()

	p := pool.New(func() []int { return make([]int, 0, 4) }, nil)
	s := p.Get()
	if cap(s) != 4 {
		t.Errorf("cap = %d, want 4", cap(s))
	}
	p.Put(s)
}
