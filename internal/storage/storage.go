// Package storage defines the whole-collection blob store the ledger
// persists into. Backends live in the sub-packages.
package storage

import "context"

const (
	CollectionKeys    = "keys"
	CollectionUsers   = "users"
	CollectionHistory = "keyHistory"
)

// BlobStore loads and saves one named collection as an opaque blob.
// Load returns (nil, nil) for a collection that was never saved.
type BlobStore interface {
	Load(ctx context.Context, collection string) ([]byte, error)
	Save(ctx context.Context, collection string, data []byte) error
}

// Pinger is implemented by backends that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}
