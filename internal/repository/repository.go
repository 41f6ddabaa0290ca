// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package repository is the typed CRUD surface over one remote collection.

A [Repository] decodes the provider's JSON rows into an entity type and bounds
every call with an operation timeout. It never caches: writes do not update
any list held by the caller, so views refetch after a successful write.
*/
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/pkg/uuid"
)

// DefaultTimeout bounds one remote call when none is configured.
const DefaultTimeout = 10 * time.Second

// ErrDeleteNotConfirmed is returned when the confirmer did not answer yes.
// No delete was sent.
var ErrDeleteNotConfirmed = errors.New("repository: delete not confirmed")

// # Options

// ListOptions selects and orders a list. An empty OrderBy means provider order.
type ListOptions struct {
	OrderBy   string
	Ascending bool
	Filters   []backend.Filter
	Limit     int
	Offset    int
}

// Newest orders by creation time, latest first.
func Newest(limit int) ListOptions {
	return ListOptions{OrderBy: "created_at", Limit: limit}
}

func (options ListOptions) query() backend.Query {
	query := backend.Query{
		Filters: options.Filters,
		Limit:   options.Limit,
		Offset:  options.Offset,
	}
	if options.OrderBy != "" {
		query.Order = []backend.Order{{Column: options.OrderBy, Ascending: options.Ascending}}
	}
	return query
}

// # Confirmation

// Confirmer asks the person behind a destructive operation for a yes or no.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to [Confirmer].
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Confirmed is a [Confirmer] whose answer is already known, e.g. from a submitted confirmation form.
func Confirmed(answer bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return answer })
}

// # Repository

// Repository reads and writes entities of type T in one collection.
type Repository[T any] struct {
	data       backend.Data
	collection string
	resource   string
	timeout    time.Duration
}

// New binds a repository to a collection. Resource names the entity in
// messages, e.g. "Plant" for "Plant not found".
func New[T any](data backend.Data, collection, resource string, timeout time.Duration) *Repository[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Repository[T]{
		data:       data,
		collection: collection,
		resource:   resource,
		timeout:    timeout,
	}
}

// Collection returns the remote collection name.
func (repository *Repository[T]) Collection() string { return repository.collection }

// Resource returns the human name of the entity.
func (repository *Repository[T]) Resource() string { return repository.resource }

// List returns the rows matching the options.
func (repository *Repository[T]) List(ctx context.Context, options ListOptions) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, repository.timeout)
	defer cancel()

	rows, err := repository.data.Select(ctx, repository.collection, options.query())
	if err != nil {
		return nil, fmt.Errorf("%s: list: %w", repository.collection, err)
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		item, err := repository.decode(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Get returns exactly one row. Zero rows is a not-found error; more than one is
// an internal error.
//
// An id that is not a UUID cannot exist, so it is reported as not found
// without a round trip.
func (repository *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if !uuid.Valid(id) {
		return zero, apperr.NotFound(repository.resource)
	}

	ctx, cancel := context.WithTimeout(ctx, repository.timeout)
	defer cancel()

	rows, err := repository.data.Select(ctx, repository.collection, backend.Query{
		Filters: []backend.Filter{backend.Eq("id", id)},
		Limit:   2,
	})
	if err != nil {
		return zero, fmt.Errorf("%s: get: %w", repository.collection, err)
	}

	switch len(rows) {
	case 0:
		return zero, apperr.NotFound(repository.resource)
	case 1:
		return repository.decode(rows[0])
	default:
		return zero, apperr.Internal(fmt.Errorf("%s: get: %d rows for id %s", repository.collection, len(rows), id))
	}
}

// First returns the first row in provider order, or a not-found error when the
// collection is empty. Used for singletons.
func (repository *Repository[T]) First(ctx context.Context) (T, error) {
	var zero T
	items, err := repository.List(ctx, ListOptions{Limit: 1})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, apperr.NotFound(repository.resource)
	}
	return items[0], nil
}

// Insert stores a new row and returns it as stored.
func (repository *Repository[T]) Insert(ctx context.Context, record backend.Record) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, repository.timeout)
	defer cancel()

	row, err := repository.data.Insert(ctx, repository.collection, record)
	if err != nil {
		return zero, fmt.Errorf("%s: insert: %w", repository.collection, err)
	}
	return repository.decode(row)
}

// Update applies a partial record to the row with the given id.
func (repository *Repository[T]) Update(ctx context.Context, id string, partial backend.Record) error {
	if !uuid.Valid(id) {
		return apperr.NotFound(repository.resource)
	}

	ctx, cancel := context.WithTimeout(ctx, repository.timeout)
	defer cancel()

	if err := repository.data.Update(ctx, repository.collection, id, partial); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound(repository.resource)
		}
		return fmt.Errorf("%s: update: %w", repository.collection, err)
	}
	return nil
}

// DeletePrompt is the question a confirmer is asked before a delete.
func (repository *Repository[T]) DeletePrompt() string {
	return fmt.Sprintf("Are you sure you want to delete this %s?", strings.ToLower(repository.resource))
}

// Delete asks the confirmer first and only then removes the row.
// A nil confirmer counts as "no". A malformed or unknown id is not found.
func (repository *Repository[T]) Delete(ctx context.Context, id string, confirmer Confirmer) error {
	if confirmer == nil || !confirmer.Confirm(ctx, repository.DeletePrompt()) {
		return ErrDeleteNotConfirmed
	}
	if !uuid.Valid(id) {
		return apperr.NotFound(repository.resource)
	}

	ctx, cancel := context.WithTimeout(ctx, repository.timeout)
	defer cancel()

	if err := repository.data.Delete(ctx, repository.collection, id); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound(repository.resource)
		}
		return fmt.Errorf("%s: delete: %w", repository.collection, err)
	}
	return nil
}

// Count returns the number of rows matching the filters.
func (repository *Repository[T]) Count(ctx context.Context, filters ...backend.Filter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, repository.timeout)
	defer cancel()

	total, err := repository.data.Count(ctx, repository.collection, filters...)
	if err != nil {
		return 0, fmt.Errorf("%s: count: %w", repository.collection, err)
	}
	return total, nil
}

func (repository *Repository[T]) decode(row json.RawMessage) (T, error) {
	var item T
	if err := json.Unmarshal(row, &item); err != nil {
		return item, apperr.Internal(fmt.Errorf("%s: decode row: %w", repository.collection, err))
	}
	return item, nil
}
