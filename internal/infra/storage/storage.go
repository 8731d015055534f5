// Package storage provides the narrow key-value persistence layer used
// for the locally persisted playlist set.
package storage

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrNotFound = errors.New("key not found")
	ErrFull     = errors.New("storage quota exceeded")
)

// KV is the persistence contract. Implementations must be safe for
// concurrent use. In-memory fakes substitute for the real store in tests.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set stores value under key, overwriting any previous value.
	// Returns ErrFull when the backing store is out of quota.
	Set(key string, value []byte) error
	// Remove deletes the key. Removing a missing key is a no-op.
	Remove(key string) error
	// Keys returns all keys with the given prefix, in unspecified order.
	Keys(prefix string) ([]string, error)
}
