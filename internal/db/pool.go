package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"horse.fit/celltrans/internal/config"
	"horse.fit/celltrans/internal/globaltime"
)

const slowQueryThreshold = 500 * time.Millisecond

var (
	ErrNoRows        = sql.ErrNoRows
	ErrNotConfigured = errors.New("database is not configured")
)

// Pool holds the translation cache and job history connection. A nil *Pool
// answers ErrNotConfigured.
type Pool struct {
	conn
	sqlDB *sql.DB
}

// NewPool opens the database named by cfg.DatabaseURL, applies the schema
// and returns ErrNotConfigured when no URL is set.
func NewPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if !cfg.HasDatabase() {
		return nil, ErrNotConfigured
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.New(gormLogWriter{log: log.With().Str("component", "gorm").Logger()}, logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  resolveGormLogLevel(cfg.LogLevel, cfg.Environment),
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: globaltime.UTC,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}

	maxOpen := max(1, int(cfg.DBMaxConns))
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(1, min(int(cfg.DBMinConns), maxOpen)))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{conn: conn{gdb: gdb}, sqlDB: sqlDB}
	if err := pool.autoMigrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}

	log.Info().
		Int("max_conns", maxOpen).
		Msg("translation store connected")
	return pool, nil
}

// WithTx runs fn in one transaction; a returned error rolls it back.
func (p *Pool) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if p == nil || p.gdb == nil {
		return ErrNotConfigured
	}
	return p.gdb.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{conn: conn{gdb: gtx}})
	})
}

func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.sqlDB == nil {
		return ErrNotConfigured
	}
	return p.sqlDB.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}

// gormLogWriter feeds gorm's query log into zerolog.
type gormLogWriter struct {
	log zerolog.Logger
}

func (w gormLogWriter) Printf(format string, args ...any) {
	w.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func resolveGormLogLevel(appLogLevel, environment string) logger.LogLevel {
	level := strings.ToLower(strings.TrimSpace(appLogLevel))
	switch level {
	case "trace", "debug":
		return logger.Info
	case "warn", "warning", "info", "":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		if strings.EqualFold(strings.TrimSpace(environment), "local") {
			return logger.Warn
		}
		return logger.Error
	}
}
