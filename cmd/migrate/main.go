package main

// Manage database migrations:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate status
//   go run ./cmd/migrate down       # roll back the latest migration

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"applykit-backend/internal/shared/config"
	"applykit-backend/internal/shared/storage/db"
	"applykit-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)

	databaseURL := pflag.String("database-url", cfg.DatabaseURL, "Postgres connection string")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|status|down] [--database-url URL]")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	command := "up"
	if pflag.NArg() > 0 {
		command = pflag.Arg(0)
	}

	ctx := context.Background()
	sqlDB, err := db.Open(ctx, *databaseURL, db.RoleMigrate)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB)
	case "down":
		err = db.RollbackLast(ctx, sqlDB)
	default:
		pflag.Usage()
		sqlDB.Close()
		os.Exit(2)
	}
	if err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err.Error()})
		sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
}
