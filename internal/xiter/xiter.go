// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package xiter

import (
	"iter"
)

// Error returns a sequence that yields only err.
func Error[T any](err error) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		yield(nil, err)
	}
}

// Of returns a sequence that calls fn when iterated and yields its result.
//
// A non-nil error is yielded alone.
func Of[T any](fn func() (*T, error)) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		v, err := fn()
		if err != nil {
			yield(nil, err)
			return
		}
		yield(v, nil)
	}
}
