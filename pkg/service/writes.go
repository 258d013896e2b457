package service

import (
	"errors"
	"fmt"

	"classlog/pkg/errs"
	"classlog/pkg/logger"
	"classlog/pkg/models"
	"classlog/pkg/store"
)

// Mutating operations return structured results instead of raising: the
// caller shows the message and moves on. Each one holds the document lock
// for its whole read-modify-write and bumps the version only after the row
// mutation is durably applied, so readers see either the full pre-write or
// full post-write state, never a torn mixture.

// LogRequest is the logEntries input. Caller-supplied periods are ignored;
// each entry's period comes from the roster.
type LogRequest struct {
	Entries []LogRequestEntry `json:"entries"`
	TS      int64             `json:"ts,omitempty"`
}

type LogRequestEntry struct {
	Student string `json:"student"`
	Issue   string `json:"issue"`
	Notes   string `json:"notes,omitempty"`
}

// BuildSheets creates (or verifies) the backing document and its sheets,
// optionally seeding starter roster and issue rows.
func (s *Service) BuildSheets(name string, seed bool) models.BuildResult {
	doc, ok := s.resolver.Resolve()
	if !ok {
		var err error
		doc, err = s.resolver.Create(name)
		if err != nil {
			logger.Error("build_create_failed", "error", err)
			return models.BuildResult{OK: false, Message: "could not create backing document"}
		}
	}
	for _, sheet := range []string{store.SheetRoster, store.SheetIssues, store.SheetLog, store.SheetCounts, store.SheetBathroom} {
		if err := s.kv.EnsureSheet(doc.ID, sheet, store.Headers[sheet]); err != nil {
			logger.Error("build_sheet_failed", "doc", doc.ID, "sheet", sheet, "error", err)
			return models.BuildResult{OK: false, Message: fmt.Sprintf("could not create sheet %s", sheet)}
		}
	}
	msg := "sheets verified"
	if seed {
		seeded, err := s.seedStarterData(doc.ID)
		if err != nil {
			return models.BuildResult{OK: false, Message: "could not seed starter data"}
		}
		if seeded {
			msg = "sheets built and seeded"
			if _, err := s.versions.Bump(doc.ID); err != nil {
				logger.Warn("build_bump_failed", "doc", doc.ID, "error", err)
			}
		}
	}
	logger.AuditEvent("sheets_built", "doc", doc.ID, "seeded", seed)
	return models.BuildResult{OK: true, Message: msg, DocID: doc.ID, DocURL: doc.URL}
}

// seedStarterData populates empty roster/issue sheets with a starter set.
// Sheets that already hold rows are left alone.
func (s *Service) seedStarterData(docID string) (bool, error) {
	seeded := false
	if !s.sheetHasData(docID, store.SheetRoster) {
		rows := [][]string{
			{"Alex Rivera", "1", "1001"},
			{"Bailey Chen", "1", "1002"},
			{"Casey Flores", "2", "1003"},
		}
		if err := s.kv.AppendRows(docID, store.SheetRoster, rows); err != nil {
			return false, err
		}
		seeded = true
	}
	if !s.sheetHasData(docID, store.SheetIssues) {
		rows := [][]string{{"Tardy"}, {"Off Task"}, {"Disruption"}}
		if err := s.kv.AppendRows(docID, store.SheetIssues, rows); err != nil {
			return false, err
		}
		seeded = true
	}
	return seeded, nil
}

// LogEntries validates and writes a batch of issue rows as one contiguous
// block. Entries missing a student or issue, or naming a student not on the
// roster, are dropped; an empty filtered set fails without writing.
func (s *Service) LogEntries(req LogRequest) models.OpResult {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return models.OpResult{OK: false, Message: err.Error()}
	}

	handle, err := s.locks.Acquire(doc.ID, s.opts.WriteLockTimeout)
	if err != nil {
		return models.OpResult{OK: false, Message: "the log is busy; try again in a moment"}
	}
	defer handle.Release()

	roster, err := s.readRoster(doc.ID)
	if err != nil {
		return models.OpResult{OK: false, Message: "could not read roster"}
	}
	// first roster match wins for duplicated names
	periodOf := make(map[string]string, len(roster))
	for _, r := range roster {
		if _, ok := periodOf[r.Name]; !ok {
			periodOf[r.Name] = r.Period
		}
	}

	ts := req.TS
	if ts == 0 {
		ts = s.now().UnixMilli()
	}
	var rows [][]string
	for _, e := range req.Entries {
		if e.Student == "" || e.Issue == "" {
			continue
		}
		period, ok := periodOf[e.Student]
		if !ok {
			continue
		}
		entry := models.LogEntry{TS: ts, Student: e.Student, Period: period, Issue: e.Issue, Notes: e.Notes}
		rows = append(rows, entry.Cells())
	}
	if len(rows) == 0 {
		return models.OpResult{OK: false, Message: errs.ErrNoValidEntries.Error()}
	}

	if err := s.kv.AppendRows(doc.ID, store.SheetLog, rows); err != nil {
		logger.Error("log_write_failed", "doc", doc.ID, "error", err)
		return models.OpResult{OK: false, Message: "could not write log entries"}
	}
	if _, err := s.versions.Bump(doc.ID); err != nil {
		logger.Warn("log_bump_failed", "doc", doc.ID, "error", err)
	}
	logger.Info("entries_logged", "doc", doc.ID, "count", len(rows))
	logger.AuditEvent("log_append", "doc", doc.ID, "count", len(rows), "ts", ts)
	return models.OpResult{OK: true, Message: fmt.Sprintf("logged %d entries", len(rows))}
}

// DeleteLastEntry removes the most recently written row matching student,
// issue and (when given) period: undo-last, not arbitrary deletion.
func (s *Service) DeleteLastEntry(student, issue, period string) models.UndoResult {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return models.UndoResult{OK: false, Message: err.Error()}
	}

	handle, err := s.locks.Acquire(doc.ID, s.opts.WriteLockTimeout)
	if err != nil {
		return models.UndoResult{OK: false, Message: "the log is busy; try again in a moment"}
	}
	defer handle.Release()

	entries, keys, err := s.readLog(doc.ID)
	if err != nil {
		return models.UndoResult{OK: false, Message: "could not read log"}
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Student != student || e.Issue != issue {
			continue
		}
		if period != "" && e.Period != period {
			continue
		}
		if err := s.kv.DeleteRow(keys[i]); err != nil {
			logger.Error("undo_delete_failed", "doc", doc.ID, "key", keys[i], "error", err)
			return models.UndoResult{OK: false, Message: "could not delete entry"}
		}
		if _, err := s.versions.Bump(doc.ID); err != nil {
			logger.Warn("undo_bump_failed", "doc", doc.ID, "error", err)
		}
		logger.Info("entry_undone", "doc", doc.ID, "student", student, "issue", issue)
		logger.AuditEvent("log_undo", "doc", doc.ID, "student", student, "issue", issue, "period", period)
		row := e
		return models.UndoResult{OK: true, Message: "removed last matching entry", Row: &row}
	}
	return models.UndoResult{OK: false, Message: errs.ErrNoMatch.Error()}
}

// ClearAllLogs wipes the log sheet.
func (s *Service) ClearAllLogs() models.OpResult {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return models.OpResult{OK: false, Message: err.Error()}
	}

	handle, err := s.locks.Acquire(doc.ID, s.opts.WriteLockTimeout)
	if err != nil {
		return models.OpResult{OK: false, Message: "the log is busy; try again in a moment"}
	}
	defer handle.Release()

	n, err := s.kv.RowCount(doc.ID, store.SheetLog)
	if err != nil {
		return models.OpResult{OK: false, Message: "could not read log"}
	}
	if err := s.kv.ClearSheet(doc.ID, store.SheetLog); err != nil {
		logger.Error("clear_failed", "doc", doc.ID, "error", err)
		return models.OpResult{OK: false, Message: "could not clear log"}
	}
	if _, err := s.versions.Bump(doc.ID); err != nil {
		logger.Warn("clear_bump_failed", "doc", doc.ID, "error", err)
	}
	logger.Info("logs_cleared", "doc", doc.ID, "rows", n)
	logger.AuditEvent("log_clear", "doc", doc.ID, "rows", n)
	return models.OpResult{OK: true, Message: fmt.Sprintf("cleared %d log rows", n)}
}

// lockBusy distinguishes contention from other acquisition failures where a
// caller wants to phrase the two differently.
func lockBusy(err error) bool {
	return errors.Is(err, errs.ErrLockTimeout)
}
