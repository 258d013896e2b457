// Package store is the durable tabular backing for classlog: named sheets of
// string-cell rows, two-scope key/value properties, a document registry and
// raw namespaces used by the version counter and the cache. Everything lives
// in a single Pebble database.
package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"classlog/pkg/logger"
)

// Store owns the Pebble handle. It is constructed once at startup and
// injected into every component that needs durable state; there are no
// package-level singletons.
type Store struct {
	db   *pebble.DB
	path string
	seq  uint64
}

// Open opens (or creates) the Pebble database at path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database. Safe to call twice.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

// Path returns the on-disk database path.
func (s *Store) Path() string { return s.path }

func (s *Store) get(key []byte) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not opened")
	}
	val, closer, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), val...)
	_ = closer.Close()
	return out, nil
}

func (s *Store) set(key, val []byte) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	return s.db.Set(key, val, pebble.Sync)
}

func (s *Store) delete(key []byte) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	return s.db.Delete(key, pebble.Sync)
}

// scanPrefix visits every key/value under prefix in key order. The callback
// may return an error to stop early.
func (s *Store) scanPrefix(prefix []byte, fn func(key, val []byte) error) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// deleteBatch removes a set of keys in one synced batch.
func (s *Store) deleteBatch(keys [][]byte) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	if len(keys) == 0 {
		return nil
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, k := range keys {
		if err := b.Delete(k, nil); err != nil {
			return err
		}
	}
	return s.db.Apply(b, pebble.Sync)
}

// deleteRange removes every key under prefix.
func (s *Store) deleteRange(prefix []byte) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	return s.db.DeleteRange(prefix, prefixUpperBound(prefix), pebble.Sync)
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff; no upper bound
}

func isNotFound(err error) bool {
	return err == pebble.ErrNotFound
}
