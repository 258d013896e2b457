// Package service is the coordination layer behind the UI: cached reads
// over the aggregate computers and lock-guarded read-modify-write for every
// mutation, with the version bump that retires stale cache entries.
package service

import (
	"time"

	"classlog/pkg/attach"
	"classlog/pkg/cache"
	"classlog/pkg/locks"
	"classlog/pkg/models"
	"classlog/pkg/store"
	"classlog/pkg/version"
)

// Options tunes TTLs and lock timeouts. Zero values fall back to defaults.
type Options struct {
	DataTTL     time.Duration // roster/issue picker data
	CountsTTL   time.Duration // per-period count snapshots
	BathroomTTL time.Duration // bathroom status and analytics

	WriteLockTimeout time.Duration // batch log writes
	ScanLockTimeout  time.Duration // single bathroom scans
}

func (o *Options) applyDefaults() {
	if o.DataTTL <= 0 {
		o.DataTTL = 5 * time.Minute
	}
	if o.CountsTTL <= 0 {
		o.CountsTTL = 5 * time.Minute
	}
	if o.BathroomTTL <= 0 {
		o.BathroomTTL = 30 * time.Second
	}
	if o.WriteLockTimeout <= 0 {
		o.WriteLockTimeout = 10 * time.Second
	}
	if o.ScanLockTimeout <= 0 {
		o.ScanLockTimeout = 3 * time.Second
	}
}

// Service wires the storage, cache, version and lock layers together.
type Service struct {
	kv       *store.Store
	caches   *cache.Cache
	versions *version.Store
	locks    *locks.Manager
	resolver *attach.Resolver
	opts     Options

	now func() time.Time // overridable in tests
}

func New(kv *store.Store, caches *cache.Cache, versions *version.Store, lm *locks.Manager, resolver *attach.Resolver, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		kv:       kv,
		caches:   caches,
		versions: versions,
		locks:    lm,
		resolver: resolver,
		opts:     opts,
		now:      time.Now,
	}
}

// readRoster parses the roster sheet.
func (s *Service) readRoster(docID string) ([]models.RosterRow, error) {
	rows, err := s.kv.Rows(docID, store.SheetRoster)
	if err != nil {
		return nil, err
	}
	out := make([]models.RosterRow, 0, len(rows))
	for _, r := range rows {
		if rr, ok := models.RosterRowFromCells(r.Cells); ok {
			out = append(out, rr)
		}
	}
	return out, nil
}

// readIssues parses the ordered issue labels.
func (s *Service) readIssues(docID string) ([]string, error) {
	rows, err := s.kv.Rows(docID, store.SheetIssues)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r.Cells) == 0 {
			continue
		}
		if label := r.Cells[0]; label != "" {
			out = append(out, label)
		}
	}
	return out, nil
}

// readLog parses log entries in insertion order, retaining row keys for the
// undo path.
func (s *Service) readLog(docID string) ([]models.LogEntry, []string, error) {
	rows, err := s.kv.Rows(docID, store.SheetLog)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]models.LogEntry, 0, len(rows))
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		if e, ok := models.LogEntryFromCells(r.Cells); ok {
			entries = append(entries, e)
			keys = append(keys, r.Key)
		}
	}
	return entries, keys, nil
}

// readBathroom parses bathroom events in insertion order.
func (s *Service) readBathroom(docID string) ([]models.BathroomEvent, error) {
	rows, err := s.kv.Rows(docID, store.SheetBathroom)
	if err != nil {
		return nil, err
	}
	out := make([]models.BathroomEvent, 0, len(rows))
	for _, r := range rows {
		if e, ok := models.BathroomEventFromCells(r.Cells); ok {
			out = append(out, e)
		}
	}
	return out, nil
}
