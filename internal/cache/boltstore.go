package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"go.etcd.io/bbolt"
)

const (
	// DefaultCacheDir is the default cache directory name
	DefaultCacheDir = ".lazydi-cache"

	// bucketName is the BoltDB bucket holding generated sources
	bucketName = "sources"
)

// record is the value stored per container
type record struct {
	Source    string    `json:"source"`
	WrittenAt time.Time `json:"written_at"`
}

// BoltStore keeps generated sources in a BoltDB file, one key per container.
// BoltDB holds an exclusive lock on the file while it is open, so only one
// process can use the store at a time.
type BoltStore struct {
	db    *bbolt.DB
	path  string
	key   string
	clock clockwork.Clock
}

// OpenBoltStore opens (creating if needed) the database at path and returns a
// store for key.
func OpenBoltStore(path, key string, opts ...StoreOption) (*BoltStore, error) {
	o := newStoreOptions(opts)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &BoltStore{
		db:    db,
		path:  path,
		key:   key,
		clock: o.clock,
	}, nil
}

// ForKey returns a store for key sharing the same open database
func (s *BoltStore) ForKey(key string) *BoltStore {
	return &BoltStore{db: s.db, path: s.path, key: key, clock: s.clock}
}

// Close closes the cache database
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func (s *BoltStore) Location() string {
	return s.path + "#" + s.key
}

func (s *BoltStore) get() (*record, error) {
	var rec *record

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(s.key))
		if data == nil {
			return nil
		}

		rec = &record{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	return rec, nil
}

func (s *BoltStore) ModTime() (time.Time, bool, error) {
	rec, err := s.get()
	if err != nil || rec == nil {
		return time.Time{}, false, err
	}

	return rec.WrittenAt, true, nil
}

func (s *BoltStore) Read() ([]byte, error) {
	rec, err := s.get()
	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreMissing, s.Location())
	}

	return []byte(rec.Source), nil
}

func (s *BoltStore) Write(src []byte) error {
	data, err := json.Marshal(record{Source: string(src), WrittenAt: s.clock.Now()})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(s.key), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}

	return nil
}

func (s *BoltStore) Remove() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(s.key))
	})
	if err != nil {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}

	return nil
}

// Lock is a no-op; the open database already excludes other processes
func (s *BoltStore) Lock() (func() error, error) {
	return func() error { return nil }, nil
}

// Keys lists the containers held in the database
func (s *BoltStore) Keys() ([]string, error) {
	var keys []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}

	return keys, nil
}
