package db

import (
	"fmt"

	"github.com/kasuganosora/tacticsai/config"
	dbmysql "github.com/kasuganosora/tacticsai/db/mysql"
	dbsqlite "github.com/kasuganosora/tacticsai/db/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns the audit database for the configured mode. An empty mode
// means SQLite.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Mode {
	case ModeSQLite, "":
		db, err := dbsqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("db: sqlite %s: %w", cfg.SQLitePath, err)
		}
		log.Info("sqlite opened", zap.String("path", cfg.SQLitePath))
		return db, nil
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		}, log)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
