// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command createsuperuser creates an account holding the admin role.
//
// Usage:
//
//	SUPERUSER_PASSWORD=... createsuperuser -email admin@example.com
//
// The password may also be given with -password; the environment variable
// keeps it out of shell history. Uses the same DATABASE_URL as the API server
// and applies pending migrations first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/migration"
	pgstore "github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/internal/users/account"
)

const passwordEnv = "SUPERUSER_PASSWORD"

func main() {
	email := flag.String("email", "", "email of the new superuser")
	password := flag.String("password", os.Getenv(passwordEnv), "password of the new superuser (default $"+passwordEnv+")")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(log, *email, *password); err != nil {
		if appError := apperr.As(err); appError != nil {
			fmt.Fprintf(os.Stderr, "createsuperuser: %s (%s)\n", appError.Message, appError.Code)
			for _, detail := range appError.Details {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", detail.Field, detail.Message)
			}
		} else {
			fmt.Fprintf(os.Stderr, "createsuperuser: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(log *slog.Logger, email, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolOptions{MaxConns: 2}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return err
	}

	user, err := account.NewService(account.NewPostgresStore(pool), log).CreateSuperuser(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("superuser %s created with id %s\n", user.Email, user.ID)
	return nil
}
