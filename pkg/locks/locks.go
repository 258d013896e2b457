// Package locks serializes writers around a document. The preferred lock is
// a per-document lock file (exclusive across processes sharing the data
// directory); when no lock directory is available the manager falls back to
// a process-wide mutex. Acquisition blocks up to a timeout; release is
// idempotent and swallows errors so it can never mask the outcome of the
// guarded operation.
package locks

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/danjacques/gofslock/fslock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"classlog/pkg/errs"
	"classlog/pkg/logger"
)

const pollInterval = 10 * time.Millisecond

var (
	acquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classlog_lock_acquisitions_total",
		Help: "Lock acquisitions by kind and result.",
	}, []string{"kind", "result"})
	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "classlog_lock_wait_seconds",
		Help:    "Time spent waiting for the document lock.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handle releases an acquired lock. Release is safe to call more than once.
type Handle struct {
	once    sync.Once
	release func()
}

// Release frees the lock. Errors from the underlying primitive are logged
// and swallowed.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(h.release)
}

// Manager hands out exclusive per-document locks.
type Manager struct {
	dir string // lock file directory; empty disables file locks

	proc chan struct{} // process-wide fallback, buffered size 1
}

// NewManager builds a manager writing lock files under dir. An empty dir
// means file locks are unavailable and every acquire uses the process lock.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, proc: make(chan struct{}, 1)}
}

// Acquire blocks until the document lock is held or timeout elapses,
// returning errs.ErrLockTimeout in the latter case. Infrastructure failures
// of the file lock (not contention) fall back to the process-wide lock.
func (m *Manager) Acquire(docID string, timeout time.Duration) (*Handle, error) {
	start := time.Now()
	deadline := start.Add(timeout)

	if m.dir != "" {
		h, err := m.acquireFile(docID, deadline)
		if err == nil {
			waitSeconds.Observe(time.Since(start).Seconds())
			acquisitions.WithLabelValues("document", "ok").Inc()
			return h, nil
		}
		if errors.Is(err, errs.ErrLockTimeout) {
			acquisitions.WithLabelValues("document", "timeout").Inc()
			return nil, err
		}
		logger.Warn("doc_lock_unavailable", "doc", docID, "error", err)
	}

	h, err := m.acquireProcess(deadline)
	if err != nil {
		acquisitions.WithLabelValues("process", "timeout").Inc()
		return nil, err
	}
	waitSeconds.Observe(time.Since(start).Seconds())
	acquisitions.WithLabelValues("process", "ok").Inc()
	return h, nil
}

func (m *Manager) acquireFile(docID string, deadline time.Time) (*Handle, error) {
	path := filepath.Join(m.dir, docID+".lock")
	for {
		fh, err := fslock.Lock(path)
		if err == nil {
			return &Handle{release: func() {
				if uerr := fh.Unlock(); uerr != nil {
					logger.Warn("lock_release_failed", "doc", docID, "error", uerr)
				}
			}}, nil
		}
		if err != fslock.ErrLockHeld {
			return nil, err
		}
		if time.Now().Add(pollInterval).After(deadline) {
			return nil, errs.ErrLockTimeout
		}
		time.Sleep(pollInterval)
	}
}

func (m *Manager) acquireProcess(deadline time.Time) (*Handle, error) {
	wait := time.Until(deadline)
	if wait < 0 {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case m.proc <- struct{}{}:
		return &Handle{release: func() { <-m.proc }}, nil
	case <-timer.C:
		return nil, errs.ErrLockTimeout
	}
}
