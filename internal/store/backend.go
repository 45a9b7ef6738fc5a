// Package store manages bounded persistent conversation storage over an
// externally supplied key-value backend: CRUD, search, deduplication,
// capacity-triggered eviction, merge-based import, and settings.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Sentinel errors surfaced by store operations.
var (
	// ErrNotFound reports that the referenced conversation id is absent.
	ErrNotFound = errors.New("conversation not found")
	// ErrInvalidFormat reports a malformed import bundle, raised before
	// any record is processed.
	ErrInvalidFormat = errors.New("invalid import format")
)

// KV is the asynchronous key-value backend the store persists through.
// Values are opaque JSON documents. Both reads and writes may fail; the
// store decides per operation whether a failure degrades to a safe
// default or propagates.
type KV interface {
	// Get reads one key. The second return reports presence; a missing
	// key is not an error.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// GetAll reads the entire namespace. Used for total-size estimation.
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)

	// Set writes the given keys. Keys not mentioned are left untouched.
	Set(ctx context.Context, values map[string]json.RawMessage) error
}
