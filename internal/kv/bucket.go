// Package kv provides simple named key-value buckets with SQLite
// persistence and an in-memory option for tests.
package kv

// Bucket is the interface for key-value storage operations. Values are
// opaque blobs; callers handle their own encoding.
type Bucket interface {
	// Name returns the bucket name.
	Name() string

	// IsPersistent returns true if the bucket is backed by SQLite.
	IsPersistent() bool

	// Put saves a value under the given key, replacing any prior value.
	Put(key string, value []byte) error

	// Get retrieves a value by key. The second return is false if the
	// key does not exist.
	Get(key string) ([]byte, bool, error)

	// Delete removes a key from the bucket. Returns true if it existed.
	Delete(key string) (bool, error)

	// Keys returns all keys in the bucket.
	Keys() ([]string, error)

	// Clear removes all keys from the bucket.
	Clear() error
}
