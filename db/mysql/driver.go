package mysql

import (
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool sizes the connection pool. Zero fields take the defaults below.
type Pool struct {
	MaxOpen int
	MaxIdle int
	MaxLife time.Duration
}

func (p Pool) withDefaults() Pool {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 20
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = 5
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxLife <= 0 {
		p.MaxLife = time.Hour
	}
	return p
}

// Target names the server and schema a DSN points at, without credentials.
func Target(dsn string) (string, error) {
	c, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	return c.Net + "(" + c.Addr + ")/" + c.DBName, nil
}

// Open connects to MySQL, sizes the pool and logs where the audit trail goes.
func Open(dsn string, pool Pool, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	target, err := Target(dsn)
	if err != nil {
		return nil, err
	}
	pool = pool.withDefaults()

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("mysql %s: %w", target, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpen)
	sqlDB.SetMaxIdleConns(pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(pool.MaxLife)

	log.Info("mysql connected",
		zap.String("target", target),
		zap.Int("max_open", pool.MaxOpen),
		zap.Int("max_idle", pool.MaxIdle),
		zap.Duration("max_life", pool.MaxLife))
	return db, nil
}
