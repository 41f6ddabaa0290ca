// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package listing holds the state of one rendered list.
//
// A [View] loads its rows with a full refetch every time. There is no
// incremental patching: after any write the owner calls Refetch again.
package listing

import (
	"context"
	"log/slog"
	"sync"

	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/repository"
)

// Status is the phase of a list.
type Status int

const (
	Loading Status = iota
	Ready
	Failed
)

func (status Status) String() string {
	switch status {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "failed"
	}
}

// Lister is satisfied by [repository.Repository].
type Lister[T any] interface {
	List(ctx context.Context, options repository.ListOptions) ([]T, error)
}

// Snapshot is a consistent copy of a view's state.
type Snapshot[T any] struct {
	Status Status
	Items  []T
	Err    error
}

// Empty reports whether the list loaded and has no rows.
func (snapshot Snapshot[T]) Empty() bool {
	return snapshot.Status == Ready && len(snapshot.Items) == 0
}

// View is a list bound to fixed options.
type View[T any] struct {
	lister  Lister[T]
	options repository.ListOptions

	mu       sync.Mutex
	snapshot Snapshot[T]
	fetches  int
}

// New returns a view in the Loading state. Nothing is fetched until Refetch.
func New[T any](lister Lister[T], options repository.ListOptions) *View[T] {
	return &View[T]{
		lister:   lister,
		options:  options,
		snapshot: Snapshot[T]{Status: Loading},
	}
}

/*
Refetch replaces the rows with a fresh read.

A failed read moves the view to Failed and drops the previous rows, so a page
never shows stale data as if it were current. The error is also returned.
*/
func (view *View[T]) Refetch(ctx context.Context) error {
	view.mu.Lock()
	view.snapshot.Status = Loading
	view.fetches++
	view.mu.Unlock()

	items, err := view.lister.List(ctx, view.options)

	view.mu.Lock()
	defer view.mu.Unlock()
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "list_fetch_failed", slog.Any("error", err))
		view.snapshot = Snapshot[T]{Status: Failed, Err: err}
		return err
	}
	view.snapshot = Snapshot[T]{Status: Ready, Items: items}
	return nil
}

// Snapshot returns the current state.
func (view *View[T]) Snapshot() Snapshot[T] {
	view.mu.Lock()
	defer view.mu.Unlock()
	return view.snapshot
}

// Fetches reports how many times the view has been loaded.
func (view *View[T]) Fetches() int {
	view.mu.Lock()
	defer view.mu.Unlock()
	return view.fetches
}
