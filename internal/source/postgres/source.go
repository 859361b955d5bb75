package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/duckmesh/querychat/internal/query"
)

const defaultSchema = "public"

// Source reads table and column names from information_schema and runs
// generated statements against the same database.
type Source struct {
	db     *sql.DB
	schema string
}

func NewSource(db *sql.DB, schema string) *Source {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = defaultSchema
	}
	return &Source{db: db, schema: schema}
}

func (s *Source) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping source db: %w", err)
	}
	return nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) ListTables(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`, s.schema)
}

func (s *Source) ListColumns(ctx context.Context, table string) ([]string, error) {
	return s.listNames(ctx, `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, s.schema, table)
}

func (s *Source) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := query.CollectRows(rows)
	if err != nil {
		return query.Result{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (s *Source) listNames(ctx context.Context, statement string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("query information_schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return names, nil
}
