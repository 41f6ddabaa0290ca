// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package migration applies the SQL files under data/migrations with golang-migrate.

The server runs [RunUp] before it accepts traffic, so the plants, blogs,
testimonials, settings and users tables always match the code. cmd/admin also
exposes [StepDown] and [Version] for operators.
*/
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the "pgx5" database scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// Registers the "file" source scheme.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunUp applies every pending migration. A database already at the latest
// version is not an error; a dirty one is.
func RunUp(dsn string, migrationsPath string, logger *slog.Logger) error {
	return withMigrator(dsn, migrationsPath, logger, func(migrator *migrate.Migrate) error {
		from, err := checkedVersion(migrator)
		if err != nil {
			return err
		}

		err = migrator.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema_up_to_date", slog.Uint64("version", uint64(from)))
			return nil
		}
		if err != nil {
			return fmt.Errorf("migration: up failed: %w", err)
		}

		to, _, _ := migrator.Version()
		logger.Info("schema_migrated",
			slog.Uint64("from_version", uint64(from)),
			slog.Uint64("to_version", uint64(to)),
		)
		return nil
	})
}

// StepDown reverts the most recently applied migration.
func StepDown(dsn string, migrationsPath string, logger *slog.Logger) error {
	return withMigrator(dsn, migrationsPath, logger, func(migrator *migrate.Migrate) error {
		if _, err := checkedVersion(migrator); err != nil {
			return err
		}
		if err := migrator.Steps(-1); err != nil {
			return fmt.Errorf("migration: step down failed: %w", err)
		}

		version, _, err := migrator.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("schema_reverted_to_empty")
			return nil
		}
		logger.Info("schema_reverted", slog.Uint64("to_version", uint64(version)))
		return nil
	})
}

// Version reports the applied version; 0 means no migration ran yet.
func Version(dsn string, migrationsPath string, logger *slog.Logger) (version uint, dirty bool, err error) {
	err = withMigrator(dsn, migrationsPath, logger, func(migrator *migrate.Migrate) error {
		var versionErr error
		version, dirty, versionErr = migrator.Version()
		if errors.Is(versionErr, migrate.ErrNilVersion) {
			return nil
		}
		return versionErr
	})
	return version, dirty, err
}

// # Internals

func withMigrator(dsn string, migrationsPath string, logger *slog.Logger, run func(*migrate.Migrate) error) error {
	migrator, err := migrate.New("file://"+migrationsPath, pgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	migrator.Log = slogBridge{logger: logger}

	defer func() {
		sourceErr, databaseErr := migrator.Close()
		if sourceErr != nil {
			logger.Error("migration_source_close_failed", slog.Any("error", sourceErr))
		}
		if databaseErr != nil {
			logger.Error("migration_database_close_failed", slog.Any("error", databaseErr))
		}
	}()

	return run(migrator)
}

// checkedVersion refuses to continue on a dirty schema.
func checkedVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migration: failed to read version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migration: schema is dirty at version %d, fix it by hand first", version)
	}
	return version, nil
}

// pgx5DSN rewrites postgres:// and postgresql:// URLs to the pgx5:// scheme.
// Keyword/value DSNs pass through unchanged.
func pgx5DSN(dsn string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// slogBridge sends golang-migrate's progress lines to the debug level.
type slogBridge struct {
	logger *slog.Logger
}

func (bridge slogBridge) Printf(format string, args ...any) {
	bridge.logger.Debug("migration_progress", slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func (bridge slogBridge) Verbose() bool { return false }
