// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/mknursery/internal/platform/apperr"
)

// SQLSTATE codes that get a dedicated classification.
const (
	uniqueViolation = "23505"
)

// Wrap inspects a database error and classifies it as an [apperr.AppError].
//
// Missing rows become not-found for the given resource. Unique violations become
// conflicts. Everything else is a remote failure whose message is kept, prefixed
// with the action for context in logs.
func Wrap(err error, resource, action string) error {
	if err == nil {
		return nil
	}

	// Already classified further down
	if apperr.IsAppError(err) {
		return err
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Constraint mapping
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			conflict := apperr.Conflict(resource + " already exists")
			conflict.Cause = err
			return conflict
		}
		return apperr.Remote(fmt.Errorf("%s", pgErr.Message))
	}

	// 3. Connectivity and unknown query errors
	return apperr.Remote(fmt.Errorf("%s: %w", action, err))
}
