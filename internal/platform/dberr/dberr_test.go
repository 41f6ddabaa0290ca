// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/dberr"
)

/*
TestWrap_Classification covers the mapping of pgx errors onto the error taxonomy.
*/
func TestWrap_Classification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"no_rows", pgx.ErrNoRows, apperr.CodeNotFound, "Plant not found"},
		{"unique", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, "CONFLICT", "Plant already exists"},
		{"check", &pgconn.PgError{Code: "23514", Message: `new row violates check constraint "plants_stock_check"`}, apperr.CodeRemote, `new row violates check constraint "plants_stock_check"`},
		{"connection", errors.New("dial tcp: connection refused"), apperr.CodeRemote, "select plants: dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dberr.Wrap(tt.err, "Plant", "select plants")

			ae := apperr.As(err)
			if assert.NotNil(t, ae) {
				assert.Equal(t, tt.code, ae.Code)
				assert.Equal(t, tt.message, ae.Message)
			}
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "Plant", "noop"))
}
