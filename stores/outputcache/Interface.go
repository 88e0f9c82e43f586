// Package outputcache defines the store that memoizes classified transaction outputs.
//
// A Store is a session over one backing location. Writes made with Put are visible to
// Get on the same Store straight away and become durable when Commit is called.
// Close discards anything not yet committed.
//
// Backends live in sub packages (sql, badger, leveldb, memory, nullstore) and are
// usually opened through the factory package, either from a store URL or from a
// Location.
package outputcache

import (
	"context"
)

type Store interface {
	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) (int, string, error)

	// Put inserts or replaces the output stored under txID and index.
	Put(ctx context.Context, txID []byte, index uint32, output *CachedOutput) error

	// Get returns the output stored under txID and index. A miss is reported as
	// found == false with a nil error.
	Get(ctx context.Context, txID []byte, index uint32) (output *CachedOutput, found bool, err error)

	// Commit makes every Put since the last Commit durable. It is a no-op when nothing
	// is pending.
	Commit(ctx context.Context) error

	// Close discards uncommitted writes and releases the backing store.
	Close(ctx context.Context) error
}
