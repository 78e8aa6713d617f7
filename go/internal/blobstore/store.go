package blobstore

import "context"

// Store is a key-value blob store. Values are opaque strings.
type Store interface {
	// Get returns the value for key. found is false when nothing is stored.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set overwrites the value for key
	Set(ctx context.Context, key, value string) error
}
