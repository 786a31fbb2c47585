// Package blob is the byte-level key-value store behind checkpoints, cached
// results, stored batches and status documents. Paths are hierarchical
// strings such as "sessions/<hash>/checkpoint". There are no multi-key
// transactions.
package blob

import (
	"context"
	"fmt"
)

// Store is implemented by every backend.
type Store interface {
	Put(ctx context.Context, path string, data []byte) error
	// Get returns ok=false when nothing is stored at path.
	Get(ctx context.Context, path string) (data []byte, ok bool, err error)
	// Delete reports whether something was removed.
	Delete(ctx context.Context, path string) (bool, error)
	Exists(ctx context.Context, path string) (bool, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendMemory   = "memory"
)

// Open constructs the named backend. dsn is a file path for sqlite and bolt,
// a connection string for postgres, an s3:// URL for s3, and ignored for
// memory.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(dsn)
	case BackendBolt:
		return OpenBolt(dsn)
	case BackendPostgres:
		return OpenPostgres(ctx, dsn)
	case BackendS3:
		return OpenS3(ctx, dsn)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", backend)
	}
}
