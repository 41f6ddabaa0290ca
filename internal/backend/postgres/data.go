// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres implements the data half of the backend on PostgreSQL.
//
// Rows travel as JSON in both directions. Reads use to_jsonb over the table
// row; writes use jsonb_populate_record so column types come from the table
// definition and never from the Go value.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/internal/platform/dberr"
	"github.com/taibuivan/mknursery/pkg/uuid"
)

// Data is a [backend.Data] backed by a pgx pool.
type Data struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewData returns a data provider. A zero timeout leaves calls bounded by the caller.
func NewData(db *pgxpool.Pool, timeout time.Duration) *Data {
	return &Data{db: db, timeout: timeout}
}

var _ backend.Data = (*Data)(nil)

func (data *Data) Select(context context.Context, collection string, query backend.Query) ([]json.RawMessage, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "SELECT to_jsonb(t) FROM %s AS t", table)

	args := []any{}
	where, args, err := whereClause(collection, table, query.Filters, args)
	if err != nil {
		return nil, err
	}
	builder.WriteString(where)

	if len(query.Order) > 0 {
		parts := make([]string, 0, len(query.Order))
		for _, order := range query.Order {
			if !schema.HasColumn(collection, order.Column) {
				return nil, unknownColumn(collection, order.Column)
			}
			direction := "DESC"
			if order.Ascending {
				direction = "ASC"
			}
			parts = append(parts, fmt.Sprintf("t.%s %s", pgx.Identifier{order.Column}.Sanitize(), direction))
		}
		builder.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}

	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&builder, " LIMIT $%d", len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		fmt.Fprintf(&builder, " OFFSET $%d", len(args))
	}

	context, cancel := data.bound(context)
	defer cancel()

	rows, err := data.db.Query(context, builder.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, collection, "select_"+collection)
	}
	defer rows.Close()

	result := []json.RawMessage{}
	for rows.Next() {
		var row []byte
		if err := rows.Scan(&row); err != nil {
			return nil, dberr.Wrap(err, collection, "scan_"+collection)
		}
		result = append(result, json.RawMessage(row))
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, collection, "select_"+collection)
	}

	return result, nil
}

func (data *Data) Insert(context context.Context, collection string, record backend.Record) (json.RawMessage, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	row := make(backend.Record, len(record)+1)
	for column, value := range record {
		row[column] = value
	}
	if id, _ := row["id"].(string); id == "" {
		row["id"] = uuid.New()
	}

	columns, err := columnList(collection, row)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("postgres: encode %s record: %w", collection, err))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s AS t (%s)
		SELECT %s FROM jsonb_populate_record(NULL::%s, $1::jsonb)
		RETURNING to_jsonb(t)
	`, table, strings.Join(columns, ", "), strings.Join(columns, ", "), table)

	context, cancel := data.bound(context)
	defer cancel()

	var inserted []byte
	if err := data.db.QueryRow(context, query, payload).Scan(&inserted); err != nil {
		return nil, dberr.Wrap(err, collection, "insert_"+collection)
	}
	return json.RawMessage(inserted), nil
}

func (data *Data) Update(context context.Context, collection, id string, record backend.Record) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	row := make(backend.Record, len(record))
	for column, value := range record {
		if column == "id" {
			continue
		}
		row[column] = value
	}
	if len(row) == 0 {
		return apperr.ValidationError("Nothing to update")
	}

	columns, err := columnList(collection, row)
	if err != nil {
		return err
	}
	assignments := make([]string, 0, len(columns))
	for _, column := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = src.%s", column, column))
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return apperr.Internal(fmt.Errorf("postgres: encode %s record: %w", collection, err))
	}

	query := fmt.Sprintf(`
		UPDATE %s AS t
		SET %s
		FROM jsonb_populate_record(NULL::%s, $1::jsonb) AS src
		WHERE t.id = $2::text::uuid
	`, table, strings.Join(assignments, ", "), table)

	context, cancel := data.bound(context)
	defer cancel()

	cmd, err := data.db.Exec(context, query, payload, id)
	if err != nil {
		return dberr.Wrap(err, collection, "update_"+collection)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound(collection)
	}
	return nil
}

func (data *Data) Delete(context context.Context, collection, id string) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	context, cancel := data.bound(context)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1::text::uuid`, table)
	cmd, err := data.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, collection, "delete_"+collection)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound(collection)
	}
	return nil
}

func (data *Data) Count(context context.Context, collection string, filters ...backend.Filter) (int, error) {
	table, err := tableFor(collection)
	if err != nil {
		return 0, err
	}

	where, args, err := whereClause(collection, table, filters, nil)
	if err != nil {
		return 0, err
	}

	context, cancel := data.bound(context)
	defer cancel()

	var total int
	query := fmt.Sprintf("SELECT count(*) FROM %s AS t%s", table, where)
	if err := data.db.QueryRow(context, query, args...).Scan(&total); err != nil {
		return 0, dberr.Wrap(err, collection, "count_"+collection)
	}
	return total, nil
}

// # Query Building

func (data *Data) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if data.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, data.timeout)
}

func tableFor(collection string) (string, error) {
	if !schema.HasCollection(collection) {
		return "", apperr.Internal(fmt.Errorf("postgres: unknown collection %q", collection))
	}
	return pgx.Identifier{collection}.Sanitize(), nil
}

func unknownColumn(collection, column string) error {
	return apperr.Internal(fmt.Errorf("postgres: unknown column %q in %s", column, collection))
}

// columnList validates and quotes the keys of a record in a stable order.
func columnList(collection string, record backend.Record) ([]string, error) {
	names := make([]string, 0, len(record))
	for column := range record {
		if !schema.HasColumn(collection, column) {
			return nil, unknownColumn(collection, column)
		}
		names = append(names, column)
	}
	slices.Sort(names)

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = pgx.Identifier{name}.Sanitize()
	}
	return quoted, nil
}

// whereClause renders filters. Each value is decoded through the table's row
// type so it is compared with the column's own type.
func whereClause(collection, table string, filters []backend.Filter, args []any) (string, []any, error) {
	if len(filters) == 0 {
		return "", args, nil
	}

	conditions := make([]string, 0, len(filters))
	for _, filter := range filters {
		if !schema.HasColumn(collection, filter.Column) {
			return "", nil, unknownColumn(collection, filter.Column)
		}

		var operator string
		switch filter.Op {
		case backend.OpEq:
			operator = "="
		case backend.OpLte:
			operator = "<="
		case backend.OpGte:
			operator = ">="
		default:
			return "", nil, apperr.Internal(fmt.Errorf("postgres: unsupported operator %q", filter.Op))
		}

		payload, err := json.Marshal(map[string]any{filter.Column: filter.Value})
		if err != nil {
			return "", nil, apperr.Internal(fmt.Errorf("postgres: encode filter: %w", err))
		}
		args = append(args, payload)

		column := pgx.Identifier{filter.Column}.Sanitize()
		conditions = append(conditions, fmt.Sprintf(
			"t.%s %s (jsonb_populate_record(NULL::%s, $%d::jsonb)).%s",
			column, operator, table, len(args), column,
		))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}
