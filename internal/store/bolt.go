// Package store provides a thin bbolt wrapper persisting trained
// forecast models across restarts. Entries are JSON payloads keyed by
// grid cell and stamped with their store time; TTL policy lives in the
// caller, which prunes via DeleteOlderThan.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

var (
	bucketModels   = []byte("models")
	bucketInternal = []byte("_meta")
)

// ModelStore wraps a bbolt database holding serialized trained models.
type ModelStore struct {
	db *bolt.DB
}

// envelope wraps a payload with its store timestamp.
type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Open opens (or creates) the bbolt database at path. Parent
// directories are created automatically.
func Open(path string) (*ModelStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &ModelStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *ModelStore) Close() error {
	return s.db.Close()
}

func (s *ModelStore) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketModels, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// Put stores a payload under key, stamping the store time.
func (s *ModelStore) Put(key string, payload []byte) error {
	data, err := json.Marshal(envelope{StoredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding model envelope: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketModels).Put([]byte(key), data)
	})
}

// Get retrieves a payload and its store time.
// Returns (payload, storedAt, true, nil) when found.
func (s *ModelStore) Get(key string) ([]byte, time.Time, bool, error) {
	var env envelope
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketModels).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &env)
	})
	if err != nil || !found {
		return nil, time.Time{}, false, err
	}
	return env.Payload, env.StoredAt, true, nil
}

// Delete removes a single entry.
func (s *ModelStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketModels).Delete([]byte(key))
	})
}

// DeleteOlderThan prunes entries stored before cutoff and returns how
// many were removed.
func (s *ModelStore) DeleteOlderThan(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModels)
		c := b.Cursor()
		var stale [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			if env.StoredAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
