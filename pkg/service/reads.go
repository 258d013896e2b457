package service

import (
	"strconv"

	"classlog/pkg/aggregate"
	"classlog/pkg/cache"
	"classlog/pkg/logger"
	"classlog/pkg/models"
	"classlog/pkg/store"
)

// Read calls share one shape: resolve the document, read its current
// version, try the cache under (prefix, doc, param, version), and on a miss
// compute from raw rows and store under the same key. Two concurrent misses
// both compute the same value; the second Put is harmlessly redundant.

// GetAppState reports attachment and sheet presence. Never raises; an
// unattached state is a normal answer here.
func (s *Service) GetAppState() models.AppState {
	doc, ok := s.resolver.Resolve()
	if !ok {
		return models.AppState{}
	}
	state := models.AppState{
		Attached: true,
		DocID:    doc.ID,
		DocURL:   doc.URL,
		SheetsPresent: models.SheetsPresent{
			Roster: s.kv.SheetPresent(doc.ID, store.SheetRoster),
			Issues: s.kv.SheetPresent(doc.ID, store.SheetIssues),
			Log:    s.kv.SheetPresent(doc.ID, store.SheetLog),
			Counts: s.kv.SheetPresent(doc.ID, store.SheetCounts),
		},
	}
	state.HasData.Roster = s.sheetHasData(doc.ID, store.SheetRoster)
	state.HasData.Issues = s.sheetHasData(doc.ID, store.SheetIssues)
	state.HasData.Log = s.sheetHasData(doc.ID, store.SheetLog)
	return state
}

func (s *Service) sheetHasData(docID, sheet string) bool {
	n, err := s.kv.RowCount(docID, sheet)
	if err != nil {
		logger.Warn("row_count_failed", "doc", docID, "sheet", sheet, "error", err)
		return false
	}
	return n > 0
}

// GetData returns the roster/issue picker data.
func (s *Service) GetData() (models.RosterData, error) {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return models.RosterData{}, err
	}
	key := cache.Key(cache.PrefixData, doc.ID, "", s.versions.Get(doc.ID))
	var out models.RosterData
	if s.caches.Get(key, &out) {
		return out, nil
	}
	roster, err := s.readRoster(doc.ID)
	if err != nil {
		return models.RosterData{}, err
	}
	issues, err := s.readIssues(doc.ID)
	if err != nil {
		return models.RosterData{}, err
	}
	out = aggregate.RosterAndIssues(roster, issues)
	s.caches.Put(key, out, s.opts.DataTTL)
	return out, nil
}

// GetCountsSnapshot returns the per-period count matrix with rollups.
func (s *Service) GetCountsSnapshot(period string) (models.CountSnapshot, error) {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return models.CountSnapshot{}, err
	}
	key := cache.Key(cache.PrefixCounts, doc.ID, period, s.versions.Get(doc.ID))
	var out models.CountSnapshot
	if s.caches.Get(key, &out) {
		return out, nil
	}
	issues, err := s.readIssues(doc.ID)
	if err != nil {
		return models.CountSnapshot{}, err
	}
	roster, err := s.readRoster(doc.ID)
	if err != nil {
		return models.CountSnapshot{}, err
	}
	logs, _, err := s.readLog(doc.ID)
	if err != nil {
		return models.CountSnapshot{}, err
	}
	out = aggregate.CountSnapshot(period, issues, roster, logs)
	s.caches.Put(key, out, s.opts.CountsTTL)
	return out, nil
}

// GetBathroomStatus returns who is currently out and in for today,
// optionally scoped to one period.
func (s *Service) GetBathroomStatus(period string) (models.BathroomStatus, error) {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return models.BathroomStatus{}, err
	}
	key := cache.Key(cache.PrefixBathroom, doc.ID, period, s.versions.Get(doc.ID))
	var out models.BathroomStatus
	if s.caches.Get(key, &out) {
		return out, nil
	}
	events, err := s.readBathroom(doc.ID)
	if err != nil {
		return models.BathroomStatus{}, err
	}
	out = aggregate.Status(events, period, s.now())
	s.caches.Put(key, out, s.opts.BathroomTTL)
	return out, nil
}

// GetBathroomAnalytics returns today's trip totals.
func (s *Service) GetBathroomAnalytics() (models.BathroomAnalytics, error) {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return models.BathroomAnalytics{}, err
	}
	key := cache.Key(cache.PrefixAnalytics, doc.ID, "", s.versions.Get(doc.ID))
	var out models.BathroomAnalytics
	if s.caches.Get(key, &out) {
		return out, nil
	}
	events, err := s.readBathroom(doc.ID)
	if err != nil {
		return models.BathroomAnalytics{}, err
	}
	out = aggregate.Analytics(events, s.now())
	s.caches.Put(key, out, s.opts.BathroomTTL)
	return out, nil
}

// bathroomLimit reads the per-deployment trip cap, seeding the default on
// first access.
const defaultBathroomLimit = 3

func (s *Service) bathroomLimit(docID string) int {
	raw, ok, err := s.kv.GetProp(store.ScopeDoc, docID, "bathroom_limit")
	if err != nil {
		logger.Warn("limit_read_failed", "doc", docID, "error", err)
		return defaultBathroomLimit
	}
	if !ok {
		if err := s.kv.SetProp(store.ScopeDoc, docID, "bathroom_limit", strconv.Itoa(defaultBathroomLimit)); err != nil {
			logger.Warn("limit_seed_failed", "doc", docID, "error", err)
		}
		return defaultBathroomLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultBathroomLimit
	}
	return n
}
