// Package docstore stores uploaded document blobs and resolves storage refs
// into time-limited retrieval URLs. Raw refs never leave the engine on
// public surfaces.
package docstore

import (
	"context"
	"io"
	"time"
)

// Store is the blob storage contract the ingestion pipeline and visibility
// gateway depend on.
type Store interface {
	// Put stores the blob under key and returns the storage ref.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// PresignGet resolves a storage ref into a retrieval URL valid for ttl.
	PresignGet(ctx context.Context, ref string, ttl time.Duration) (string, error)
	// Health reports whether the backing storage is reachable.
	Health(ctx context.Context) error
}
