// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package xmaps

import (
	"cmp"
	"maps"
	"slices"
)

// Contains reports whether key is present in m.
func Contains[Map ~map[K]V, K comparable, V any](m Map, key K) bool {
	_, ok := m[key]
	return ok
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[Map ~map[K]V, K cmp.Ordered, V any](m Map) []K {
	return slices.Sorted(maps.Keys(m))
}

// Overlay copies the entries of src into dst whose keys dst does not hold yet.
//
// A nil dst is allocated when src is not empty.
func Overlay[Map ~map[K]V, K comparable, V any](dst, src Map) Map {
	if len(src) > 0 && dst == nil {
		dst = make(Map, len(src))
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}
