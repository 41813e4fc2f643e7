package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/dealdesk-backend/pkg/config"
	"github.com/angelmondragon/dealdesk-backend/pkg/db"
	"github.com/angelmondragon/dealdesk-backend/pkg/logger"
	"github.com/angelmondragon/dealdesk-backend/pkg/migrate"
)

const serviceName = "dealdesk-migrate"

type flags struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommand runs against a live postgres connection.
type dbCommand func(ctx context.Context, sqlDB *sql.DB, f flags) error

var dbCommands = map[string]dbCommand{
	"up": func(ctx context.Context, sqlDB *sql.DB, f flags) error {
		return migrate.Run(ctx, sqlDB, f.dir, "up")
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, f flags) error {
		return migrate.Run(ctx, sqlDB, f.dir, "down")
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, f flags) error {
		return migrate.Run(ctx, sqlDB, f.dir, "status")
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, f flags) error {
		if f.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, f.dir, f.version)
	},
}

func main() {
	var f flags
	flag.StringVar(&f.cmd, "cmd", "up", "migration command: "+commandNames())
	flag.StringVar(&f.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&f.name, "name", "", "migration name (for create)")
	flag.StringVar(&f.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env},
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd": f.cmd,
		"dir": f.dir,
	})
	if err := run(ctx, cfg, logg, f); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.complete")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, f flags) error {
	// create and validate only touch the filesystem
	switch f.cmd {
	case "create":
		if f.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(f.dir, f.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migrate.created")
		return nil
	case "validate":
		return migrate.ValidateDir(f.dir)
	}

	command, ok := dbCommands[f.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q (want %s)", f.cmd, commandNames())
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	// goose files are postgres-only; sqlite schemas come from the models
	if dbClient.Driver() == db.DriverSQLite {
		if f.cmd != "up" {
			return fmt.Errorf("-cmd=%s is not supported on sqlite", f.cmd)
		}
		return dbClient.DB().WithContext(ctx).AutoMigrate(migrate.SchemaModels()...)
	}

	if err := migrate.ValidateDir(f.dir); err != nil {
		return fmt.Errorf("refusing to migrate: %w", err)
	}
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	return command(ctx, sqlDB, f)
}

func commandNames() string {
	names := []string{"create", "validate"}
	for name := range dbCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
