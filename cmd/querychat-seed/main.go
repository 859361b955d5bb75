package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/duckmesh/querychat/internal/config"
	"github.com/duckmesh/querychat/internal/dataset"
	"github.com/duckmesh/querychat/internal/observability"
	s3store "github.com/duckmesh/querychat/internal/storage/s3"
)

func main() {
	seed := flag.Int64("seed", 42, "random seed for the generated rows")
	users := flag.Int("users", 50, "number of users")
	events := flag.Int("events", 2000, "number of events")
	rowsPerFile := flag.Int("rows-per-file", 500, "maximum event rows per parquet part")
	flag.Parse()

	cfg, err := config.LoadFromEnv("querychat-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := s3store.New(ctx, cfg.ObjectStore)
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	summary, err := dataset.Seed(ctx, store, dataset.SeedConfig{
		Prefix:      cfg.Source.DatasetPrefix,
		Seed:        *seed,
		Users:       *users,
		Events:      *events,
		RowsPerFile: *rowsPerFile,
	})
	if err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}

	tables := make([]string, 0, len(summary.Tables))
	for table := range summary.Tables {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		logger.Info("seeded table",
			slog.String("table", table),
			slog.Int("rows", summary.Tables[table]),
			slog.String("prefix", cfg.Source.DatasetPrefix),
		)
	}
	for _, key := range summary.Removed {
		logger.Info("removed stale part", slog.String("key", key))
	}
	logger.Info("seed complete",
		slog.Int("files", len(summary.Files)),
		slog.Int("removed", len(summary.Removed)),
	)
}
