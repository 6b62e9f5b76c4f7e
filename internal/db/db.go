package db

import (
	"fmt"
	"time"

	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New opens the database selected by DB_DRIVER and migrates the schema.
func New(cfg *config.Config) (*gorm.DB, error) {
	var database *gorm.DB
	var err error

	switch cfg.EnvVars.DBDriver {
	case config.DBDriverPostgres:
		database, err = connectToDatabaseWithRetry(cfg.EnvVars.DatabaseUrl)
	case config.DBDriverSQLite:
		database, err = openSQLite(cfg.EnvVars.DatabaseUrl)
	default:
		return nil, fmt.Errorf("no SQL database for DB_DRIVER %q", cfg.EnvVars.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(&models.RecipeSession{}); err != nil {
		return nil, fmt.Errorf("failed to migrate recipe sessions: %w", err)
	}
	return database, nil
}

// connectToDatabaseWithRetry connects to the database and retries if necessary.
func connectToDatabaseWithRetry(databaseURL string) (*gorm.DB, error) {
	logger.Get().Info("connecting to database", zap.String("driver", config.DBDriverPostgres))
	var database *gorm.DB
	var err error

	start := time.Now()
	for {
		database, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			break
		}
		if time.Since(start) > 1*time.Minute {
			return nil, fmt.Errorf("could not connect to database after 1 minute: %w", err)
		}
		logger.Get().Warn("could not connect to database, retrying...", zap.Error(err))
		time.Sleep(5 * time.Second)
	}
	return database, nil
}

func openSQLite(path string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	logger.Get().Info("database initialized", zap.String("driver", config.DBDriverSQLite), zap.String("path", path))
	return database, nil
}
