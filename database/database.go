package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/lshigami/quizengine/config"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the configured driver. sqlite is meant for local runs.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Database)
	if err != nil {
		return nil, err
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Database.Driver, err)
	}
	if cfg.Database.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY under concurrent submits.
		sqlDB.SetMaxOpenConns(1)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database connection established")
	return db, nil
}

func dialectorFor(db config.Database) (gorm.Dialector, error) {
	switch db.Driver {
	case "", "postgres":
		dsn := db.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				db.Host, db.User, db.Password, db.Name, db.Port)
		}
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := db.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				db.User, db.Password, db.Host, db.Port, db.Name)
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		dsn := db.DSN
		if dsn == "" {
			dsn = "quizengine.db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", db.Driver)
	}
}
