package duckdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"golang.org/x/sync/errgroup"

	"github.com/duckmesh/querychat/internal/query"
	"github.com/duckmesh/querychat/internal/storage"
)

const downloadConcurrency = 4

// Source serves parquet datasets from an object store through an in-process
// DuckDB database. Every object under <prefix>/<table>/ becomes part of a view
// named after the table. The object listing is re-read before each schema
// listing, so added, replaced and removed datasets show up on the next
// question.
type Source struct {
	store  storage.DatasetReader
	prefix string

	mu      sync.Mutex
	db      *sql.DB
	workDir string
	files   map[string]localFile
	views   map[string]struct{}
	synced  bool
}

type localFile struct {
	table string
	path  string
	etag  string
}

func New(store storage.DatasetReader, prefix string) (*Source, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	workDir, err := os.MkdirTemp("", "querychat-duckdb-")
	if err != nil {
		return nil, fmt.Errorf("create dataset work dir: %w", err)
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		_ = os.RemoveAll(workDir)
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Source{
		store:   store,
		prefix:  prefix,
		db:      db,
		workDir: workDir,
		files:   map[string]localFile{},
		views:   map[string]struct{}{},
	}, nil
}

// HealthCheck pings DuckDB and, when the store supports it, the bucket the
// datasets live in.
func (s *Source) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("ping object store: %w", err)
		}
	}
	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	_ = os.RemoveAll(s.workDir)
	return err
}

func (s *Source) ListTables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	return s.listNames(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'main'
ORDER BY table_name`)
}

func (s *Source) ListColumns(ctx context.Context, table string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listNames(ctx, `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`, table)
}

func (s *Source) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.synced {
		if err := s.sync(ctx); err != nil {
			return query.Result{}, err
		}
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

// sync mirrors the dataset objects into the work dir and rebuilds the views.
// Objects whose ETag is unchanged are not downloaded again.
func (s *Source) sync(ctx context.Context) error {
	objects, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("list dataset objects: %w", err)
	}

	present := make(map[string]struct{}, len(objects))
	byTable := map[string][]string{}
	var stale []localFile
	var staleKeys []string
	for _, object := range objects {
		table, ok := storage.ParseDatasetFilePath(s.prefix, object.Key)
		if !ok {
			continue
		}
		present[object.Key] = struct{}{}

		local, cached := s.files[object.Key]
		if !cached || object.ETag == "" || local.etag != object.ETag {
			local = localFile{
				table: table,
				path:  filepath.Join(s.workDir, localFileName(object.Key)),
				etag:  object.ETag,
			}
			stale = append(stale, local)
			staleKeys = append(staleKeys, object.Key)
		}
		byTable[table] = append(byTable[table], local.path)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(downloadConcurrency)
	for i := range stale {
		key, local := staleKeys[i], stale[i]
		group.Go(func() error {
			return s.download(groupCtx, key, local.path)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	for i, key := range staleKeys {
		s.files[key] = stale[i]
	}

	for key, local := range s.files {
		if _, ok := present[key]; ok {
			continue
		}
		_ = os.Remove(local.path)
		delete(s.files, key)
	}

	for table, paths := range byTable {
		sort.Strings(paths)
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table), quoteStringArray(paths))
		if _, err := s.db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for table %q: %w", table, err)
		}
	}
	for table := range s.views {
		if _, ok := byTable[table]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DROP VIEW IF EXISTS `+quoteIdent(table)); err != nil {
			return fmt.Errorf("drop view for table %q: %w", table, err)
		}
	}

	s.views = make(map[string]struct{}, len(byTable))
	for table := range byTable {
		s.views[table] = struct{}{}
	}
	s.synced = true
	return nil
}

// download replaces localPath with the object's content. The file is written
// next to its destination and renamed so a view never reads a partial file.
func (s *Source) download(ctx context.Context, key, localPath string) error {
	reader, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	tmp, err := os.CreateTemp(s.workDir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", key, err)
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("copy object %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file for %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("move parquet file into place %q: %w", localPath, err)
	}
	return nil
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
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return names, nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// localFileName derives the mirror file name from the full object key, so
// distinct keys never share a local file.
func localFileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".parquet"
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
