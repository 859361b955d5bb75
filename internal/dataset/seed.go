package dataset

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/duckmesh/querychat/internal/storage"
)

const parquetContentType = "application/vnd.apache.parquet"

type SeedConfig struct {
	Prefix      string
	Seed        int64
	Users       int
	Events      int
	RowsPerFile int
}

type SeedSummary struct {
	Tables  map[string]int
	Files   []string
	Removed []string
}

// Store is the part of the object store that seeding writes through.
type Store interface {
	storage.DatasetWriter
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// Seed uploads the users and events tables under cfg.Prefix. Events are split
// into parts of at most cfg.RowsPerFile rows. Parts left over from an earlier
// seed with more rows are deleted, so each table holds exactly this run's rows.
func Seed(ctx context.Context, store Store, cfg SeedConfig) (SeedSummary, error) {
	if store == nil {
		return SeedSummary{}, fmt.Errorf("object store is required")
	}
	if cfg.Users <= 0 {
		return SeedSummary{}, fmt.Errorf("users must be > 0")
	}
	if cfg.Events <= 0 {
		return SeedSummary{}, fmt.Errorf("events must be > 0")
	}
	rowsPerFile := cfg.RowsPerFile
	if rowsPerFile <= 0 {
		rowsPerFile = cfg.Events
	}

	generator := NewGenerator(cfg.Seed, cfg.Users)
	summary := SeedSummary{Tables: map[string]int{}}

	users := generator.Users()
	if err := uploadPart(ctx, store, cfg.Prefix, "users", 0, users, &summary); err != nil {
		return SeedSummary{}, err
	}

	events := generator.Events(cfg.Events)
	for part, start := 0, 0; start < len(events); part, start = part+1, start+rowsPerFile {
		end := min(start+rowsPerFile, len(events))
		if err := uploadPart(ctx, store, cfg.Prefix, "events", part, events[start:end], &summary); err != nil {
			return SeedSummary{}, err
		}
	}

	if err := removeStaleParts(ctx, store, cfg.Prefix, &summary); err != nil {
		return SeedSummary{}, err
	}
	return summary, nil
}

func removeStaleParts(ctx context.Context, store Store, prefix string, summary *SeedSummary) error {
	written := make(map[string]struct{}, len(summary.Files))
	for _, key := range summary.Files {
		written[key] = struct{}{}
	}
	for table := range summary.Tables {
		objects, err := store.List(ctx, path.Join(storage.CleanPrefix(prefix), table))
		if err != nil {
			return fmt.Errorf("list %s parts: %w", table, err)
		}
		for _, object := range objects {
			if _, ok := written[object.Key]; ok {
				continue
			}
			if owner, ok := storage.ParseDatasetFilePath(prefix, object.Key); !ok || owner != table {
				continue
			}
			if err := store.Delete(ctx, object.Key); err != nil {
				return fmt.Errorf("delete stale part %s: %w", object.Key, err)
			}
			summary.Removed = append(summary.Removed, object.Key)
		}
	}
	sort.Strings(summary.Removed)
	return nil
}

func uploadPart[T any](ctx context.Context, store Store, prefix, table string, part int, rows []T, summary *SeedSummary) error {
	key, err := storage.BuildDatasetFilePath(prefix, table, part)
	if err != nil {
		return err
	}
	data, err := EncodeParquet(rows)
	if err != nil {
		return fmt.Errorf("encode %s part %d: %w", table, part, err)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: parquetContentType}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	summary.Tables[table] += len(rows)
	summary.Files = append(summary.Files, key)
	return nil
}
