package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const kvBucket = "kv"

// Bolt is the durable KV backend over a single-file bbolt database. All
// namespace entries live in one bucket with JSON values.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists([]byte(kvBucket))
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Get reads one key.
func (b *Bolt) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	var out json.RawMessage
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(kvBucket))
		if bk == nil {
			return nil
		}
		if v := bk.Get([]byte(key)); v != nil {
			out = make(json.RawMessage, len(v))
			copy(out, v)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, found, nil
}

// GetAll reads the entire namespace.
func (b *Bolt) GetAll(_ context.Context) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(kvBucket))
		if bk == nil {
			return nil
		}
		return bk.ForEach(func(k, v []byte) error {
			cp := make(json.RawMessage, len(v))
			copy(cp, v)
			out[string(k)] = cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set writes the given keys atomically.
func (b *Bolt) Set(_ context.Context, values map[string]json.RawMessage) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists([]byte(kvBucket))
		if err != nil {
			return err
		}
		for k, v := range values {
			if err := bk.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}
