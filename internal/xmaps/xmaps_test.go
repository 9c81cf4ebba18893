// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package xmaps_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/agentflow/internal/xmaps"
)

type pair struct {
	a, b string
}

func TestContains(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]int
		key  string
		want bool
	}{
		{
			name: "key exists",
			m:    map[string]int{"a": 1, "b": 2, "c": 3},
			key:  "b",
			want: true,
		},
		{
			name: "key does not exist",
			m:    map[string]int{"a": 1, "b": 2, "c": 3},
			key:  "d",
			want: false,
		},
		{
			name: "nil map",
			m:    nil,
			key:  "a",
			want: false,
		},
		{
			name: "case sensitivity",
			m:    map[string]int{"a": 1, "B": 2, "c": 3},
			key:  "b",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := xmaps.Contains(tt.m, tt.key); got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainsStructKey(t *testing.T) {
	m := map[pair]bool{{"x", "y"}: true}
	if !xmaps.Contains(m, pair{"x", "y"}) {
		t.Error("Contains() = false for a present struct key")
	}
	if xmaps.Contains(m, pair{"y", "x"}) {
		t.Error("Contains() = true for a missing struct key")
	}
}

func TestSortedKeys(t *testing.T) {
	got := xmaps.SortedKeys(map[string]int{"c": 3, "a": 1, "b": 2})
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("SortedKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlay(t *testing.T) {
	tests := []struct {
		name string
		dst  map[string]int
		src  map[string]int
		want map[string]int
	}{
		{
			name: "first wins",
			dst:  map[string]int{"a": 1},
			src:  map[string]int{"a": 9, "b": 2},
			want: map[string]int{"a": 1, "b": 2},
		},
		{
			name: "nil dst",
			dst:  nil,
			src:  map[string]int{"b": 2},
			want: map[string]int{"b": 2},
		},
		{
			name: "empty src keeps nil",
			dst:  nil,
			src:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := xmaps.Overlay(tt.dst, tt.src)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Overlay() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
