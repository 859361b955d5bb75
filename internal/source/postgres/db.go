package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/duckmesh/querychat/internal/config"
)

const pingTimeout = 5 * time.Second

// Open returns a pooled connection to the source database. Generated
// statements use unqualified table names, so sessions default search_path to
// the configured schema unless the DSN already sets one.
func Open(ctx context.Context, cfg config.SourceConfig, applicationName string) (*sql.DB, error) {
	connConfig, err := parseConnConfig(cfg, applicationName)
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDB(*connConfig)
	applyPoolSettings(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping source db: %w", err)
	}
	return db, nil
}

func parseConnConfig(cfg config.SourceConfig, applicationName string) (*pgx.ConnConfig, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("source dsn is required")
	}
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse source dsn: %w", err)
	}
	if connConfig.RuntimeParams == nil {
		connConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := connConfig.RuntimeParams["application_name"]; !ok && applicationName != "" {
		connConfig.RuntimeParams["application_name"] = applicationName
	}
	if schema := strings.TrimSpace(cfg.Schema); schema != "" {
		if _, ok := connConfig.RuntimeParams["search_path"]; !ok {
			connConfig.RuntimeParams["search_path"] = schema
		}
	}
	return connConfig, nil
}

func applyPoolSettings(db *sql.DB, cfg config.SourceConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
