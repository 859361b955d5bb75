// Package source opens the database that questions are answered from.
package source

import (
	"context"
	"fmt"
	"io"

	"github.com/duckmesh/querychat/internal/config"
	"github.com/duckmesh/querychat/internal/nl2sql"
	"github.com/duckmesh/querychat/internal/query"
	"github.com/duckmesh/querychat/internal/source/duckdb"
	"github.com/duckmesh/querychat/internal/source/postgres"
	"github.com/duckmesh/querychat/internal/storage"
	"github.com/duckmesh/querychat/internal/storage/s3"
)

// Source lists the tables and columns a question can refer to and executes the
// generated statements against the same database.
type Source interface {
	nl2sql.SchemaProvider
	query.Engine
	HealthCheck(ctx context.Context) error
	io.Closer
}

// Open connects the source selected by cfg.Source.Driver. store backs the
// duckdb driver; when nil, a store is built from cfg.ObjectStore.
func Open(ctx context.Context, cfg config.Config, store storage.DatasetReader) (Source, error) {
	switch cfg.Source.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Source, cfg.Service.Name)
		if err != nil {
			return nil, err
		}
		return postgres.NewSource(db, cfg.Source.Schema), nil
	case config.DriverDuckDB:
		if store == nil {
			s3Store, err := s3.New(ctx, cfg.ObjectStore)
			if err != nil {
				return nil, fmt.Errorf("open object store: %w", err)
			}
			store = s3Store
		}
		return duckdb.New(store, cfg.Source.DatasetPrefix)
	default:
		return nil, fmt.Errorf("unsupported source driver %q", cfg.Source.Driver)
	}
}
