// Package cache stores serialized aggregate snapshots keyed by
// (prefix, document, query parameter, version) with a TTL safety net.
// Caching is a pure optimization: both Get and Put fail soft, so a broken
// cache degrades to recomputation, never to an error or a stale serve.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"classlog/pkg/logger"
	"classlog/pkg/store"
)

// Aggregate key prefixes. RemoveAll sweeps exactly these.
const (
	PrefixData      = "data"
	PrefixCounts    = "counts"
	PrefixBathroom  = "bstatus"
	PrefixAnalytics = "banal"
)

// KnownPrefixes enumerates every prefix the sweep must cover.
var KnownPrefixes = []string{PrefixData, PrefixCounts, PrefixBathroom, PrefixAnalytics}

// sweepParams is the bounded parameter domain of the best-effort sweep: the
// empty parameter plus periods 0-10. Periods outside this range leak stale
// entries until TTL expiry; version-embedding remains the real invalidation
// mechanism.
var sweepParams = func() []string {
	out := []string{""}
	for p := 0; p <= 10; p++ {
		out = append(out, fmt.Sprintf("%d", p))
	}
	return out
}()

const sweepBatchSize = 100

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classlog_cache_lookups_total",
		Help: "Cache lookups by result.",
	}, []string{"result"})
	puts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classlog_cache_puts_total",
		Help: "Cache writes by result.",
	}, []string{"result"})
)

type envelope struct {
	ExpiresUnix int64           `json:"expires_unix"`
	Payload     json.RawMessage `json:"payload"`
}

// Cache is a versioned TTL cache living in its own store namespace.
type Cache struct {
	kv  *store.Store
	now func() time.Time
}

func New(kv *store.Store) *Cache {
	return &Cache{kv: kv, now: time.Now}
}

// Key builds a cache key. The embedded version makes entries computed under
// older generations unreachable after a bump.
func Key(prefix, docID, param string, version int) string {
	return fmt.Sprintf("cache:%s:%s:%s:v%d", prefix, docID, param, version)
}

// Get loads a cached value into out. Any backend, decode or expiry problem
// reads as a miss.
func (c *Cache) Get(key string, out any) bool {
	b, ok, err := c.kv.KVGet(key)
	if err != nil {
		logger.Warn("cache_get_failed", "key", key, "error", err)
		lookups.WithLabelValues("error").Inc()
		return false
	}
	if !ok {
		lookups.WithLabelValues("miss").Inc()
		return false
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		logger.Warn("cache_entry_corrupt", "key", key)
		lookups.WithLabelValues("error").Inc()
		return false
	}
	if env.ExpiresUnix <= c.now().Unix() {
		lookups.WithLabelValues("expired").Inc()
		// best-effort cleanup, ignore failures
		_ = c.kv.KVDelete(key)
		return false
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		logger.Warn("cache_payload_corrupt", "key", key)
		lookups.WithLabelValues("error").Inc()
		return false
	}
	lookups.WithLabelValues("hit").Inc()
	return true
}

// Put stores a value with a TTL. Errors are swallowed: a failed put only
// costs a recompute on the next read.
func (c *Cache) Put(key string, v any, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Warn("cache_put_marshal_failed", "key", key, "error", err)
		puts.WithLabelValues("error").Inc()
		return
	}
	env := envelope{ExpiresUnix: c.now().Add(ttl).Unix(), Payload: payload}
	b, err := json.Marshal(env)
	if err != nil {
		puts.WithLabelValues("error").Inc()
		return
	}
	if err := c.kv.KVSet(key, b); err != nil {
		logger.Warn("cache_put_failed", "key", key, "error", err)
		puts.WithLabelValues("error").Inc()
		return
	}
	puts.WithLabelValues("ok").Inc()
}

// RemoveAll is the best-effort sweep for explicit "forget this document"
// flows: known prefixes x versions 0..maxVersion x the bounded parameter
// domain, deleted in bounded batches. Correctness never depends on it.
func (c *Cache) RemoveAll(docID string, maxVersion int) {
	batch := make([]string, 0, sweepBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.kv.KVDeleteBatch(batch); err != nil {
			logger.Warn("cache_sweep_batch_failed", "doc", docID, "error", err)
		}
		batch = batch[:0]
	}
	for _, prefix := range KnownPrefixes {
		for v := 0; v <= maxVersion; v++ {
			for _, param := range sweepParams {
				batch = append(batch, Key(prefix, docID, param, v))
				if len(batch) >= sweepBatchSize {
					flush()
				}
			}
		}
	}
	flush()
	logger.Info("cache_swept", "doc", docID, "max_version", maxVersion)
}

// PurgeExpired deletes every expired entry across all documents. Run by the
// scheduled sweeper; the TTL check in Get does not depend on it.
func (c *Cache) PurgeExpired() (int, error) {
	now := c.now().Unix()
	var expired []string
	err := c.kv.KVScanPrefix("cache:", func(key string, val []byte) error {
		var env envelope
		if err := json.Unmarshal(val, &env); err != nil {
			// corrupt entries are as good as expired
			expired = append(expired, key)
			return nil
		}
		if env.ExpiresUnix <= now {
			expired = append(expired, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	total := len(expired)
	for len(expired) > 0 {
		n := len(expired)
		if n > sweepBatchSize {
			n = sweepBatchSize
		}
		if err := c.kv.KVDeleteBatch(expired[:n]); err != nil {
			return 0, err
		}
		expired = expired[n:]
	}
	return total, nil
}
