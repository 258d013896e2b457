// Package version holds the per-document generation counter. Every cache
// key embeds the counter, so bumping it after a row mutation retires every
// aggregate computed under the old value without touching the cache at all.
package version

import (
	"strconv"

	"classlog/pkg/logger"
	"classlog/pkg/store"
)

// Store reads and bumps document version counters.
type Store struct {
	kv *store.Store
}

func New(kv *store.Store) *Store {
	return &Store{kv: kv}
}

func key(docID string) string { return "version:" + docID }

// Get returns the current version, 0 when unset. Read failures also read as
// 0: a too-low version can only cause a redundant recompute, never a stale
// serve, because cache keys are written under the same value.
func (s *Store) Get(docID string) int {
	b, ok, err := s.kv.KVGet(key(docID))
	if err != nil {
		logger.Warn("version_read_failed", "doc", docID, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || n < 0 {
		logger.Warn("version_corrupt", "doc", docID, "raw", string(b))
		return 0
	}
	return n
}

// Bump increments the counter by one and returns the new value. Not safe
// against concurrent bumpers on its own: callers hold the document write
// lock for the whole read-modify-write, which serializes bumps.
func (s *Store) Bump(docID string) (int, error) {
	n := s.Get(docID) + 1
	if err := s.kv.KVSet(key(docID), []byte(strconv.Itoa(n))); err != nil {
		logger.Error("version_bump_failed", "doc", docID, "error", err)
		return 0, err
	}
	logger.Debug("version_bumped", "doc", docID, "version", n)
	return n, nil
}

// Purge forgets the counter, used when a document is retired.
func (s *Store) Purge(docID string) error {
	return s.kv.KVDelete(key(docID))
}
