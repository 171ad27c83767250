// Package ledger implements the append-only, hash-chained corrections ledger.
//
// Every correction to the knowledge base is recorded as an immutable Entry.
// Each entry's ThisHash is the SHA-256 of its canonical field encoding, which
// includes the ThisHash of the previous entry, so any reordering or mutation
// of history is detectable by re-walking the chain.
//
// Two implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, for production use.
package ledger

import "context"

// Store is a durable, ordered, append-only collection of correction entries.
type Store interface {
	// Head returns the ThisHash of the most recently committed entry,
	// or "" if the ledger is empty.
	Head(ctx context.Context) (string, error)

	// Append persists the entry atomically and returns it with its
	// sequence number assigned. Fails with ErrDuplicateHash if ThisHash
	// already exists, ErrStaleHead if another writer advanced the chain
	// past the entry's PrevHash, and ErrSchema if storage is unavailable.
	Append(ctx context.Context, e *Entry) (*Entry, error)

	// AllOrdered returns every entry in insertion order.
	AllOrdered(ctx context.Context) ([]*Entry, error)

	// Len returns the total number of entries.
	Len(ctx context.Context) (int, error)
}
