package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lucidkernel/runtime/config"
	"github.com/lucidkernel/runtime/internal/migration"
	"github.com/lucidkernel/runtime/storage"
	sqlstore "github.com/lucidkernel/runtime/storage/sql"
	"github.com/lucidkernel/runtime/storage/redisstore"
)

// openStateBackend picks the bridge.Dependencies.State implementation from
// cfg: a configured SQL driver wins (schema brought current by
// internal/migration first), then a configured Redis address, falling back
// to the zero-configuration in-process memoryKV used by Default().
func openStateBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.KV, error) {
	switch {
	case cfg.Database.Driver != "":
		backend, err := openSQLBackend(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("state backend: sql", zap.String("driver", cfg.Database.Driver))
		return backend, nil

	case cfg.Redis.Addr != "":
		backend, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis backend: %w", err)
		}
		logger.Info("state backend: redis", zap.String("addr", cfg.Redis.Addr))
		return backend, nil

	default:
		logger.Info("state backend: memory")
		return newMemoryKV(), nil
	}
}

// openSQLBackend applies pending migrations via internal/migration, then
// opens the same database as a storage/sql.Backend for runtime reads/writes.
// The migrator and the backend connect independently (golang-migrate and
// GORM want different DSN shapes for the same database), so a migration
// failure never leaves a half-open Backend around to close.
func openSQLBackend(ctx context.Context, dbCfg config.DatabaseConfig) (*sqlstore.Backend, error) {
	mig, err := migration.NewMigratorFromDatabaseConfig(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("build migrator: %w", err)
	}
	defer mig.Close()

	if err := mig.Up(ctx); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	backend, err := sqlstore.Open(dbCfg.Driver, sqlDSN(dbCfg))
	if err != nil {
		return nil, fmt.Errorf("open sql backend: %w", err)
	}
	return backend, nil
}

// sqlDSN builds the native GORM DSN for dbCfg's driver. This is
// independent of internal/migration.BuildDatabaseURL, which builds
// golang-migrate's scheme-prefixed URL form for the same fields.
func sqlDSN(cfg config.DatabaseConfig) string {
	switch cfg.Driver {
	case "postgres", "postgresql":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	default: // sqlite
		return cfg.Name
	}
}
