// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package memory implements the data and storage halves of the backend in
// process. It backs demos, local runs without PostgreSQL and the tests of
// every package above the backend boundary.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/pkg/uuid"
)

// createdAtLayout keeps nanosecond precision at a fixed width, so the
// lexicographic order of the strings is their chronological order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type row = map[string]any

// Data is a [backend.Data] held in memory. It is safe for concurrent use.
type Data struct {
	mu     sync.RWMutex
	tables map[string]map[string]row
	clock  func() time.Time

	// lastCreated keeps created_at strictly increasing. Guarded by mu.
	lastCreated time.Time

	// sequence breaks ties between rows whose sort keys are equal.
	sequence atomic.Int64

	// failures makes the next calls on a collection fail, for tests.
	failures map[string]error
}

// NewData returns an empty in-memory data provider.
func NewData() *Data {
	return &Data{
		tables:   make(map[string]map[string]row),
		clock:    time.Now,
		failures: make(map[string]error),
	}
}

var _ backend.Data = (*Data)(nil)

// FailWith makes every call on collection return err until cleared with nil.
func (data *Data) FailWith(collection string, err error) {
	data.mu.Lock()
	defer data.mu.Unlock()
	if err == nil {
		delete(data.failures, collection)
		return
	}
	data.failures[collection] = err
}

func (data *Data) Select(ctx context.Context, collection string, query backend.Query) ([]json.RawMessage, error) {
	if err := data.check(ctx, collection); err != nil {
		return nil, err
	}

	filters, err := normalizeFilters(collection, query.Filters)
	if err != nil {
		return nil, err
	}
	for _, order := range query.Order {
		if !schema.HasColumn(collection, order.Column) {
			return nil, unknownColumn(collection, order.Column)
		}
	}

	data.mu.RLock()
	matched := make([]row, 0, len(data.tables[collection]))
	for _, candidate := range data.tables[collection] {
		if matches(candidate, filters) {
			matched = append(matched, candidate)
		}
	}
	data.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b row) int {
		for _, order := range query.Order {
			result := compareValues(a[order.Column], b[order.Column])
			if !order.Ascending {
				result = -result
			}
			if result != 0 {
				return result
			}
		}
		return cmp.Compare(sequenceOf(a), sequenceOf(b))
	})

	if query.Offset > 0 {
		matched = matched[min(query.Offset, len(matched)):]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}

	result := make([]json.RawMessage, 0, len(matched))
	for _, item := range matched {
		encoded, err := encodeRow(item)
		if err != nil {
			return nil, err
		}
		result = append(result, encoded)
	}
	return result, nil
}

func (data *Data) Insert(ctx context.Context, collection string, record backend.Record) (json.RawMessage, error) {
	if err := data.check(ctx, collection); err != nil {
		return nil, err
	}

	stored, err := normalizeRecord(collection, record)
	if err != nil {
		return nil, err
	}
	if id, _ := stored["id"].(string); id == "" {
		stored["id"] = uuid.New()
	}
	stored[sequenceKey] = data.sequence.Add(1)

	id := stored["id"].(string)

	data.mu.Lock()
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = data.nextCreatedAt().Format(createdAtLayout)
	}
	table := data.tables[collection]
	if table == nil {
		table = make(map[string]row)
		data.tables[collection] = table
	}
	if _, exists := table[id]; exists {
		data.mu.Unlock()
		return nil, apperr.Conflict(fmt.Sprintf(`duplicate key value violates unique constraint "%s_pkey"`, collection))
	}
	table[id] = stored
	data.mu.Unlock()

	return encodeRow(stored)
}

func (data *Data) Update(ctx context.Context, collection, id string, record backend.Record) error {
	if err := data.check(ctx, collection); err != nil {
		return err
	}

	changes, err := normalizeRecord(collection, record)
	if err != nil {
		return err
	}
	delete(changes, "id")

	data.mu.Lock()
	defer data.mu.Unlock()

	existing, ok := data.tables[collection][id]
	if !ok {
		return apperr.NotFound(collection)
	}

	updated := make(row, len(existing)+len(changes))
	for column, value := range existing {
		updated[column] = value
	}
	for column, value := range changes {
		updated[column] = value
	}
	data.tables[collection][id] = updated
	return nil
}

func (data *Data) Delete(ctx context.Context, collection, id string) error {
	if err := data.check(ctx, collection); err != nil {
		return err
	}

	data.mu.Lock()
	defer data.mu.Unlock()

	if _, ok := data.tables[collection][id]; !ok {
		return apperr.NotFound(collection)
	}
	delete(data.tables[collection], id)
	return nil
}

func (data *Data) Count(ctx context.Context, collection string, filters ...backend.Filter) (int, error) {
	if err := data.check(ctx, collection); err != nil {
		return 0, err
	}

	normalized, err := normalizeFilters(collection, filters)
	if err != nil {
		return 0, err
	}

	data.mu.RLock()
	defer data.mu.RUnlock()

	total := 0
	for _, candidate := range data.tables[collection] {
		if matches(candidate, normalized) {
			total++
		}
	}
	return total, nil
}

// # Helpers

// nextCreatedAt must be called with mu held.
func (data *Data) nextCreatedAt() time.Time {
	now := data.clock().UTC()
	if !now.After(data.lastCreated) {
		now = data.lastCreated.Add(time.Nanosecond)
	}
	data.lastCreated = now
	return now
}

const sequenceKey = "\x00seq"

func sequenceOf(r row) int64 {
	value, _ := r[sequenceKey].(int64)
	return value
}

func (data *Data) check(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Remote(err)
	}
	if !schema.HasCollection(collection) {
		return apperr.Internal(fmt.Errorf("memory: unknown collection %q", collection))
	}

	data.mu.RLock()
	failure := data.failures[collection]
	data.mu.RUnlock()
	if failure != nil {
		if apperr.IsAppError(failure) {
			return failure
		}
		return apperr.Remote(failure)
	}
	return nil
}

func unknownColumn(collection, column string) error {
	return apperr.Internal(fmt.Errorf("memory: unknown column %q in %s", column, collection))
}

// normalizeRecord round-trips a record through JSON, so stored values have
// the same shapes a PostgreSQL row would decode into.
func normalizeRecord(collection string, record backend.Record) (row, error) {
	for column := range record {
		if !schema.HasColumn(collection, column) {
			return nil, unknownColumn(collection, column)
		}
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("memory: encode %s record: %w", collection, err))
	}
	normalized := row{}
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, apperr.Internal(fmt.Errorf("memory: decode %s record: %w", collection, err))
	}
	return normalized, nil
}

func normalizeFilters(collection string, filters []backend.Filter) ([]backend.Filter, error) {
	normalized := make([]backend.Filter, 0, len(filters))
	for _, filter := range filters {
		if !schema.HasColumn(collection, filter.Column) {
			return nil, unknownColumn(collection, filter.Column)
		}
		switch filter.Op {
		case backend.OpEq, backend.OpLte, backend.OpGte:
		default:
			return nil, apperr.Internal(fmt.Errorf("memory: unsupported operator %q", filter.Op))
		}

		values, err := normalizeRecord(collection, backend.Record{filter.Column: filter.Value})
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, backend.Filter{Column: filter.Column, Op: filter.Op, Value: values[filter.Column]})
	}
	return normalized, nil
}

func matches(candidate row, filters []backend.Filter) bool {
	for _, filter := range filters {
		value, ok := candidate[filter.Column]
		// NULL never satisfies a comparison.
		if !ok || value == nil || filter.Value == nil {
			return false
		}
		if !sameKind(value, filter.Value) {
			return false
		}

		result := compareValues(value, filter.Value)
		switch filter.Op {
		case backend.OpEq:
			if result != 0 {
				return false
			}
		case backend.OpLte:
			if result > 0 {
				return false
			}
		case backend.OpGte:
			if result < 0 {
				return false
			}
		}
	}
	return true
}

func sameKind(a, b any) bool {
	switch a.(type) {
	case float64:
		_, ok := b.(float64)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	default:
		return false
	}
}

// compareValues orders NULLs after every value, like PostgreSQL does for ascending sorts.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	switch left := a.(type) {
	case float64:
		if right, ok := b.(float64); ok {
			return cmp.Compare(left, right)
		}
	case string:
		if right, ok := b.(string); ok {
			return cmp.Compare(left, right)
		}
	case bool:
		if right, ok := b.(bool); ok {
			switch {
			case left == right:
				return 0
			case !left:
				return -1
			default:
				return 1
			}
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func encodeRow(r row) (json.RawMessage, error) {
	public := make(row, len(r))
	for column, value := range r {
		if column == sequenceKey {
			continue
		}
		public[column] = value
	}
	encoded, err := json.Marshal(public)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("memory: encode row: %w", err))
	}
	return encoded, nil
}
