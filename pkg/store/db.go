package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/ollama-chat/pkg/models"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// Open connects to the configured database and migrates the schema.
// A failure here is fatal for the application.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "", "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if cfg.Type == "" || cfg.Type == "sqlite" {
		// single connection, single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to access sql handle")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := models.MigrationFunc(db); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	logging.LogDebugf("Opened %s database", dialector.Name())
	return db, nil
}

// sqliteDSN enables foreign keys so ON DELETE CASCADE is honoured
func sqliteDSN(path string) string {
	if path == "" {
		path = config.DefaultDBPath
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// now is the store clock: UTC with the precision every supported dialect keeps
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
