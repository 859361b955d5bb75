// Package migrations creates and seeds the demo tables in a postgres source.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const migrationTable = "querychat_schema_migrations"

var migrationFilePattern = regexp.MustCompile(`^([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

type Status struct {
	Version int64
	Name    string
	Applied bool
}

type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// plan holds the embedded migrations in version order and the versions the
// database has already recorded, newest first.
type plan struct {
	migrations []migration
	applied    []int64
}

func (p plan) isApplied(version int64) bool {
	for _, v := range p.applied {
		if v == version {
			return true
		}
	}
	return false
}

func (p plan) lookup(version int64) (migration, bool) {
	for _, item := range p.migrations {
		if item.Version == version {
			return item, true
		}
	}
	return migration{}, false
}

// Up applies pending migrations in ascending order. steps <= 0 applies all.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	p, err := r.plan(ctx, db)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, item := range p.migrations {
		if p.isApplied(item.Version) {
			continue
		}
		if steps > 0 && done == steps {
			break
		}
		err := runStep(ctx, db, "apply", item.Version, item.Up,
			`INSERT INTO `+migrationTable+` (version, name) VALUES ($1, $2)`, item.Version, item.Name)
		if err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// Down rolls back the newest applied migrations. steps <= 0 rolls back one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	p, err := r.plan(ctx, db)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, version := range p.applied {
		if done == steps {
			break
		}
		item, ok := p.lookup(version)
		if !ok {
			return done, fmt.Errorf("applied migration %d is not embedded in this binary", version)
		}
		err := runStep(ctx, db, "roll back", item.Version, item.Down,
			`DELETE FROM `+migrationTable+` WHERE version = $1`, item.Version)
		if err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	p, err := r.plan(ctx, db)
	if err != nil {
		return nil, err
	}
	statuses := make([]Status, 0, len(p.migrations))
	for _, item := range p.migrations {
		statuses = append(statuses, Status{Version: item.Version, Name: item.Name, Applied: p.isApplied(item.Version)})
	}
	return statuses, nil
}

func (r *Runner) plan(ctx context.Context, db *sql.DB) (plan, error) {
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return plan{}, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return plan{}, fmt.Errorf("ensure migration table: %w", err)
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return plan{}, err
	}
	return plan{migrations: migrations, applied: applied}, nil
}

// runStep executes script and the bookkeeping statement in one transaction.
func runStep(ctx context.Context, db *sql.DB, action string, version int64, script, record string, args ...any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s migration %d: begin tx: %w", action, version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("%s migration %d: %w", action, version, err)
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("%s migration %d: record version: %w", action, version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s migration %d: commit: %w", action, version, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+migrationTable+` ORDER BY version DESC`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return versions, nil
}

// loadMigrations pairs NNNNNN_name.up.sql with NNNNNN_name.down.sql. Both
// halves must exist and carry the same name.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	byVersion := map[int64]*migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version of %q: %w", entry.Name(), err)
		}
		body, err := fs.ReadFile(fsys, "sql/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		item, ok := byVersion[version]
		if !ok {
			item = &migration{Version: version, Name: match[2]}
			byVersion[version] = item
		}
		if item.Name != match[2] {
			return nil, fmt.Errorf("migration %d has mismatched names %q and %q", version, item.Name, match[2])
		}
		if match[3] == "up" {
			item.Up = string(body)
		} else {
			item.Down = string(body)
		}
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, item := range byVersion {
		if strings.TrimSpace(item.Up) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", item.Version)
		}
		if strings.TrimSpace(item.Down) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", item.Version)
		}
		migrations = append(migrations, *item)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
