// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var userColumns = fmt.Sprintf("%s, %s, %s, %s, %s",
	schema.Users.ID, schema.Users.Email, schema.Users.PasswordHash, schema.Users.CreatedAt, schema.Users.UpdatedAt,
)

func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5)`,
		schema.Users.Table, userColumns,
	)

	_, err := repository.pool.Exec(context, query, user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return dberr.Wrap(err, "User", "create_user")
}

func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE lower(%s) = lower($1)`,
		userColumns, schema.Users.Table, schema.Users.Email,
	)
	return repository.scanOne(context, "find_user_by_email", query, email)
}

func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1::text::uuid`,
		userColumns, schema.Users.Table, schema.Users.ID,
	)
	return repository.scanOne(context, "find_user_by_id", query, id)
}

func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NOW()
		WHERE %s = $1::text::uuid`,
		schema.Users.Table, schema.Users.PasswordHash, schema.Users.UpdatedAt, schema.Users.ID,
	)

	cmd, err := repository.pool.Exec(context, query, userID, newHash)
	if err != nil {
		return dberr.Wrap(err, "User", "update_user_password")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User", "update_user_password")
	}
	return nil
}

func (repository *PostgresUserRepository) scanOne(context context.Context, action, query string, argument string) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(context, query, argument).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "User", action)
	}
	return user, nil
}
