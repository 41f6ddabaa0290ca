// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command admin runs maintenance tasks against the PostgreSQL backend.
//
// # Usage
//
//	admin create-user -email owner@example.com
//	admin migrate up
//	admin migrate down
//	admin migrate version
//
// create-user prompts for the password twice without echo. When stdin is not
// a terminal the password is read from ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/taibuivan/mknursery/internal/identity"
	"github.com/taibuivan/mknursery/internal/platform/config"
	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/logging"
	"github.com/taibuivan/mknursery/internal/platform/migration"
	pgstore "github.com/taibuivan/mknursery/internal/platform/postgres"
)

const usage = `usage:
  admin create-user -email <address>
  admin migrate up|down|version`

var errUsage = errors.New(usage)

func main() {
	log, closer := logging.New(logging.Options{App: constants.AppName + "-admin"})
	defer closer.Close()

	if err := run(context.Background(), os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		log.Error("admin_command_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Backend != config.BackendPostgres {
		return fmt.Errorf("admin: BACKEND must be %q, got %q", config.BackendPostgres, cfg.Backend)
	}

	switch args[0] {
	case "create-user":
		return createUser(ctx, cfg, args[1:], out, log)
	case "migrate":
		return migrate(cfg, args[1:], out, log)
	default:
		return errUsage
	}
}

func createUser(ctx context.Context, cfg *config.Config, args []string, out io.Writer, log *slog.Logger) error {
	flags := flag.NewFlagSet("create-user", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	email := flags.String("email", "", "admin email address")
	if err := flags.Parse(args); err != nil || *email == "" {
		return errUsage
	}

	password, err := readNewPassword(os.Stdin, out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return err
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	provider := identity.NewProvider(identity.Options{
		Users:  identity.NewUserRepository(pool),
		Logger: log,
	})
	user, err := provider.CreateUser(ctx, *email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created admin %s (%s)\n", user.Email, user.ID)
	return nil
}

func migrate(cfg *config.Config, args []string, out io.Writer, log *slog.Logger) error {
	if len(args) != 1 {
		return errUsage
	}
	switch args[0] {
	case "up":
		return migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log)
	case "down":
		return migration.StepDown(cfg.DatabaseURL, cfg.MigrationPath, log)
	case "version":
		version, dirty, err := migration.Version(cfg.DatabaseURL, cfg.MigrationPath, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "schema version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return errUsage
	}
}
