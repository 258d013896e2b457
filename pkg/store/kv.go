package store

// Thin exported KV surface over the raw database, used by the version
// counter and the cache for their own namespaces (version:*, cache:*).

// KVGet reads a raw key. found=false when absent.
func (s *Store) KVGet(key string) ([]byte, bool, error) {
	b, err := s.get([]byte(key))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// KVSet writes a raw key.
func (s *Store) KVSet(key string, val []byte) error {
	return s.set([]byte(key), val)
}

// KVDelete removes a raw key. Absent keys are not an error.
func (s *Store) KVDelete(key string) error {
	if err := s.delete([]byte(key)); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// KVDeleteBatch removes keys in one synced batch.
func (s *Store) KVDeleteBatch(keys []string) error {
	bs := make([][]byte, 0, len(keys))
	for _, k := range keys {
		bs = append(bs, []byte(k))
	}
	return s.deleteBatch(bs)
}

// KVScanPrefix visits raw keys under prefix in key order.
func (s *Store) KVScanPrefix(prefix string, fn func(key string, val []byte) error) error {
	return s.scanPrefix([]byte(prefix), func(k, v []byte) error {
		return fn(string(k), v)
	})
}

// KVDeleteRange removes every raw key under prefix.
func (s *Store) KVDeleteRange(prefix string) error {
	return s.deleteRange([]byte(prefix))
}
