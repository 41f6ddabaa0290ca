// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer handles the nullable columns of decoded rows: a price, an
// image address or an avatar that may be NULL.
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

// Val dereferences p, yielding the zero value for nil.
func Val[T any](p *T) T {
	if p != nil {
		return *p
	}
	var zero T
	return zero
}
