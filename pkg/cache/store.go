package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss indicates the requested key was not found or had expired.
var ErrMiss = errors.New("cache miss")

// Entry is one cached query result. Entries are never mutated in place;
// a Store replaces the whole row on write.
type Entry struct {
	// Payload is the serialized raw observation list as returned by the
	// upstream for this exact sub-range.
	Payload []byte `json:"payload"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// TTL is how long after StoredAt the entry stays fresh.
	TTL time.Duration `json:"ttl"`
}

// Expired reports whether the entry's age exceeds its TTL.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// Store is a durable key/value backend for cache entries. Implementations
// must be safe for concurrent use; writes to the same key racing resolve
// to last-write-wins.
type Store interface {
	// Get retrieves an entry. Returns ErrMiss when the key is absent.
	// Implementations may also return ErrMiss for entries they know are
	// expired, but the Manager re-checks expiry either way.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set writes an entry, replacing any existing one for the same key.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Purge removes all entries.
	Purge(ctx context.Context) error

	// PurgeExpired removes expired entries and reports how many went.
	PurgeExpired(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
