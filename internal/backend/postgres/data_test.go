// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
)

/*
TestWhereClause_TypedFilters renders one populated record per filter.
*/
func TestWhereClause_TypedFilters(t *testing.T) {
	where, args, err := whereClause("plants", `"plants"`, []backend.Filter{
		backend.Eq("id", "0190a0b2-0000-7000-8000-000000000001"),
		backend.Lte("stock", 0),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t,
		` WHERE t."id" = (jsonb_populate_record(NULL::"plants", $1::jsonb))."id"`+
			` AND t."stock" <= (jsonb_populate_record(NULL::"plants", $2::jsonb))."stock"`,
		where)
	require.Len(t, args, 2)
	assert.JSONEq(t, `{"stock":0}`, string(args[1].([]byte)))
}

/*
TestWhereClause_RejectsUnknownColumn keeps arbitrary identifiers out of SQL.
*/
func TestWhereClause_RejectsUnknownColumn(t *testing.T) {
	_, _, err := whereClause("plants", `"plants"`, []backend.Filter{backend.Eq("1=1; --", 1)}, nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
}

/*
TestColumnList_SortedAndQuoted gives inserts a deterministic column order.
*/
func TestColumnList_SortedAndQuoted(t *testing.T) {
	columns, err := columnList("blogs", backend.Record{"title": "a", "content": "b", "id": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{`"content"`, `"id"`, `"title"`}, columns)

	_, err = columnList("blogs", backend.Record{"password_hash": "x"})
	assert.Error(t, err)
}

/*
TestTableFor_OnlyContentCollections refuses the identity table.
*/
func TestTableFor_OnlyContentCollections(t *testing.T) {
	table, err := tableFor("testimonials")
	require.NoError(t, err)
	assert.Equal(t, `"testimonials"`, table)

	_, err = tableFor("users")
	assert.Error(t, err)
}
