package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-tenancy/internal/config"
	"github.com/tendant/simple-tenancy/pkg/repository"
	"github.com/tendant/simple-tenancy/tenancy"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tenancy",
		Short:         "Multi-tenant agent platform: tenants, licenses, memories, skills and sessions",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newTenantCommand(),
		newLicenseCommand(),
	)
	return root
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// openDB connects to the configured database. It returns nil for the memory
// driver.
func openDB(ctx context.Context, cfg *config.Config) (*repository.DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return repository.Open(ctx, repository.Config{Dialect: repository.SQLite, DSN: cfg.SQLitePath})
	case config.DriverPostgres:
		return repository.Open(ctx, repository.Config{
			Dialect: repository.Postgres,
			DSN:     repository.PostgresDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode),
		})
	default:
		return nil, nil
	}
}

// openPlatform wires a platform over the configured storage and restores its
// state. The returned close func releases the database.
func openPlatform(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tenancy.Platform, func(), error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {}
	if db != nil {
		closeDB = func() { _ = db.Close() }
		if err := db.Migrate(ctx); err != nil {
			closeDB()
			return nil, nil, err
		}
		logger.Info("connected to database", "driver", cfg.DBDriver)
	}

	p, err := tenancy.New(tenancy.Config{
		DB:                 db,
		AdminToken:         cfg.AdminToken,
		SweepCron:          cfg.LicenseSweepCron,
		RateLimit:          cfg.RateLimit,
		SecurityHeaders:    cfg.SecurityHeaders,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Logger:             logger,
	})
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	if err := p.Hydrate(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	return p, closeDB, nil
}
