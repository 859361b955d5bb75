// Package storage describes the object store that holds parquet datasets.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// DatasetReader is the read side used by query sources. List returns every
// object under prefix with keys relative to the store root.
type DatasetReader interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// DatasetWriter is the write side used when publishing datasets. Deleting a
// missing key is not an error.
type DatasetWriter interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type ObjectStore interface {
	DatasetReader
	DatasetWriter
	// Ping fails when the backing bucket cannot be reached.
	Ping(ctx context.Context) error
}
