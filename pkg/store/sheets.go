package store

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"classlog/pkg/logger"
)

// Canonical sheet names and their headers.
const (
	SheetRoster   = "Roster"
	SheetIssues   = "Issues"
	SheetLog      = "Log"
	SheetCounts   = "Counts"
	SheetBathroom = "Bathroom"
)

// Headers maps each sheet to its header row.
var Headers = map[string][]string{
	SheetRoster:   {"Name", "Period", "Student ID"},
	SheetIssues:   {"Issue"},
	SheetLog:      {"Timestamp", "Student", "Period", "Issue", "Notes"},
	SheetCounts:   {"Student"},
	SheetBathroom: {"Timestamp", "Student ID", "Name", "Period", "Direction", "Minutes"},
}

type sheetMeta struct {
	Header    []string `json:"header"`
	CreatedTS int64    `json:"created_ts"`
}

// Row is one sheet row plus the key addressing it, used by targeted deletes.
type Row struct {
	Key   string
	Cells []string
}

func sheetKey(docID, sheet string) []byte {
	return []byte("doc:" + docID + ":sheet:" + sheet)
}

func rowPrefix(docID, sheet string) []byte {
	return []byte("doc:" + docID + ":sheet:" + sheet + ":row:")
}

// EnsureSheet creates the sheet marker if missing. Existing sheets are left
// untouched.
func (s *Store) EnsureSheet(docID, sheet string, header []string) error {
	key := sheetKey(docID, sheet)
	if _, err := s.get(key); err == nil {
		return nil
	} else if !isNotFound(err) {
		return err
	}
	b, err := json.Marshal(sheetMeta{Header: header, CreatedTS: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	if err := s.set(key, b); err != nil {
		return err
	}
	logger.Info("sheet_created", "doc", docID, "sheet", sheet)
	return nil
}

// SheetPresent reports whether the sheet marker exists. Errors read as
// absent.
func (s *Store) SheetPresent(docID, sheet string) bool {
	_, err := s.get(sheetKey(docID, sheet))
	return err == nil
}

// rowKey builds a sortable append key: nanosecond timestamp plus a process
// sequence to break ties within the same nanosecond.
func (s *Store) rowKey(docID, sheet string) []byte {
	ts := time.Now().UTC().UnixNano()
	n := atomic.AddUint64(&s.seq, 1)
	return []byte(fmt.Sprintf("%s%020d-%06d", rowPrefix(docID, sheet), ts, n))
}

// AppendRow appends a single row to a sheet.
func (s *Store) AppendRow(docID, sheet string, cells []string) error {
	b, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	key := s.rowKey(docID, sheet)
	if err := s.set(key, b); err != nil {
		logger.Error("row_append_failed", "doc", docID, "sheet", sheet, "error", err)
		return err
	}
	return nil
}

// AppendRows appends all rows as one contiguous block in a single synced
// batch: either every row lands or none do.
func (s *Store) AppendRows(docID, sheet string, rows [][]string) error {
	if s.db == nil {
		return fmt.Errorf("store not opened")
	}
	if len(rows) == 0 {
		return nil
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, cells := range rows {
		data, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if err := b.Set(s.rowKey(docID, sheet), data, nil); err != nil {
			return err
		}
	}
	if err := s.db.Apply(b, pebble.Sync); err != nil {
		logger.Error("rows_append_failed", "doc", docID, "sheet", sheet, "count", len(rows), "error", err)
		return err
	}
	return nil
}

// Rows returns every row of a sheet in insertion order.
func (s *Store) Rows(docID, sheet string) ([]Row, error) {
	var out []Row
	err := s.scanPrefix(rowPrefix(docID, sheet), func(key, val []byte) error {
		var cells []string
		if err := json.Unmarshal(val, &cells); err != nil {
			logger.Warn("row_corrupt", "doc", docID, "sheet", sheet, "key", string(key))
			return nil
		}
		out = append(out, Row{Key: string(key), Cells: cells})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RowCount returns the number of rows in a sheet.
func (s *Store) RowCount(docID, sheet string) (int, error) {
	n := 0
	err := s.scanPrefix(rowPrefix(docID, sheet), func(key, val []byte) error {
		n++
		return nil
	})
	return n, err
}

// DeleteRow removes a single row by its key (as returned by Rows).
func (s *Store) DeleteRow(key string) error {
	if err := s.delete([]byte(key)); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// ClearSheet removes every row of a sheet but keeps the sheet itself.
func (s *Store) ClearSheet(docID, sheet string) error {
	if err := s.deleteRange(rowPrefix(docID, sheet)); err != nil {
		return err
	}
	logger.Info("sheet_cleared", "doc", docID, "sheet", sheet)
	return nil
}
