package database

import (
	"context"

	"github.com/Conte777/tgnewsfeed/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides database components for fx dependency injection
var Module = fx.Module("database",
	fx.Provide(NewDBFx),
)

// NewDBFx opens the database, applies migrations and closes the connection on stop.
// Storage unavailable at startup fails the application.
func NewDBFx(
	lc fx.Lifecycle,
	cfg *config.DatabaseConfig,
	logger zerolog.Logger,
) (*gorm.DB, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db, cfg.Driver); err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Driver).Msg("Database migrations completed successfully")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Closing database connection")
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	event := logger.Info().Str("driver", cfg.Driver)
	if cfg.Driver == DriverSQLite {
		event = event.Str("path", cfg.Path)
	} else {
		event = event.Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.DBName)
	}
	event.Msg("Database connected successfully")

	return db, nil
}
