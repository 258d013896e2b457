package store

import (
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDocumentLifecycle(t *testing.T) {
	s := openTest(t)

	doc, err := s.CreateDocument("Period Tracker")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.ID == "" || doc.URL == "" {
		t.Fatalf("expected id and url, got %+v", doc)
	}

	got, err := s.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Name != "Period Tracker" || got.Trashed {
		t.Fatalf("unexpected document %+v", got)
	}

	if err := s.TrashDocument(doc.ID); err != nil {
		t.Fatalf("TrashDocument: %v", err)
	}
	got, err = s.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("GetDocument after trash: %v", err)
	}
	if !got.Trashed {
		t.Fatalf("expected trashed document")
	}

	if _, err := s.GetDocument("missing"); err != ErrDocNotFound {
		t.Fatalf("expected ErrDocNotFound, got %v", err)
	}
}

func TestListDocumentsNewestFirst(t *testing.T) {
	s := openTest(t)

	first, err := s.CreateDocument("first")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	second, err := s.CreateDocument("second")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	// force distinct creation order even within the same millisecond
	second.CreatedTS = first.CreatedTS + 1
	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
}

func TestSheetRows(t *testing.T) {
	s := openTest(t)
	doc, _ := s.CreateDocument("t")

	if err := s.EnsureSheet(doc.ID, SheetRoster, Headers[SheetRoster]); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}
	if !s.SheetPresent(doc.ID, SheetRoster) {
		t.Fatalf("expected sheet present")
	}
	if s.SheetPresent(doc.ID, SheetLog) {
		t.Fatalf("expected Log sheet absent")
	}

	if err := s.AppendRow(doc.ID, SheetRoster, []string{"Ana", "1", "1001"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := s.AppendRows(doc.ID, SheetRoster, [][]string{
		{"Ben", "1", "1002"},
		{"Cam", "2", "1003"},
	}); err != nil {
		t.Fatalf("AppendRows: %v", err)
	}

	rows, err := s.Rows(doc.ID, SheetRoster)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Cells[0] != "Ana" || rows[2].Cells[0] != "Cam" {
		t.Fatalf("rows out of append order: %+v", rows)
	}

	n, err := s.RowCount(doc.ID, SheetRoster)
	if err != nil || n != 3 {
		t.Fatalf("RowCount = %d, %v", n, err)
	}

	if err := s.DeleteRow(rows[1].Key); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	rows, _ = s.Rows(doc.ID, SheetRoster)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after delete, got %d", len(rows))
	}

	if err := s.ClearSheet(doc.ID, SheetRoster); err != nil {
		t.Fatalf("ClearSheet: %v", err)
	}
	n, _ = s.RowCount(doc.ID, SheetRoster)
	if n != 0 {
		t.Fatalf("expected empty sheet, got %d rows", n)
	}
	// the sheet itself survives a clear
	if !s.SheetPresent(doc.ID, SheetRoster) {
		t.Fatalf("expected sheet still present after clear")
	}
}

func TestProps(t *testing.T) {
	s := openTest(t)

	if _, ok, err := s.GetProp(ScopeUser, "", "attached_doc_id"); err != nil || ok {
		t.Fatalf("expected missing prop, got ok=%v err=%v", ok, err)
	}
	if err := s.SetProp(ScopeUser, "", "attached_doc_id", "abc"); err != nil {
		t.Fatalf("SetProp: %v", err)
	}
	v, ok, err := s.GetProp(ScopeUser, "", "attached_doc_id")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("GetProp = %q ok=%v err=%v", v, ok, err)
	}

	// doc scope is keyed separately
	if _, ok, _ := s.GetProp(ScopeDoc, "d1", "attached_doc_id"); ok {
		t.Fatalf("doc-scope prop should be independent of user scope")
	}
	if err := s.SetProp(ScopeDoc, "d1", "bathroom_limit", "3"); err != nil {
		t.Fatalf("SetProp doc scope: %v", err)
	}
	v, ok, _ = s.GetProp(ScopeDoc, "d1", "bathroom_limit")
	if !ok || v != "3" {
		t.Fatalf("doc prop = %q ok=%v", v, ok)
	}

	if err := s.DeleteProp(ScopeUser, "", "attached_doc_id"); err != nil {
		t.Fatalf("DeleteProp: %v", err)
	}
	if _, ok, _ := s.GetProp(ScopeUser, "", "attached_doc_id"); ok {
		t.Fatalf("expected prop deleted")
	}
}

func TestKVNamespace(t *testing.T) {
	s := openTest(t)

	if _, ok, err := s.KVGet("version:x"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.KVSet("version:x", []byte("4")); err != nil {
		t.Fatalf("KVSet: %v", err)
	}
	b, ok, err := s.KVGet("version:x")
	if err != nil || !ok || string(b) != "4" {
		t.Fatalf("KVGet = %q ok=%v err=%v", b, ok, err)
	}

	for _, k := range []string{"cache:data:d:1", "cache:data:d:2", "cache:counts:d:1"} {
		if err := s.KVSet(k, []byte("{}")); err != nil {
			t.Fatalf("KVSet %s: %v", k, err)
		}
	}
	var seen []string
	if err := s.KVScanPrefix("cache:data:", func(key string, val []byte) error {
		seen = append(seen, key)
		return nil
	}); err != nil {
		t.Fatalf("KVScanPrefix: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 keys under cache:data:, got %v", seen)
	}

	if err := s.KVDeleteRange("cache:"); err != nil {
		t.Fatalf("KVDeleteRange: %v", err)
	}
	if _, ok, _ := s.KVGet("cache:counts:d:1"); ok {
		t.Fatalf("expected cache keys deleted")
	}
	// version namespace untouched
	if _, ok, _ := s.KVGet("version:x"); !ok {
		t.Fatalf("range delete crossed namespace boundary")
	}
}

func TestPurgeDocument(t *testing.T) {
	s := openTest(t)
	doc, _ := s.CreateDocument("t")
	_ = s.EnsureSheet(doc.ID, SheetLog, Headers[SheetLog])
	_ = s.AppendRow(doc.ID, SheetLog, []string{"1", "Ana", "1", "Tardy", ""})
	_ = s.SetProp(ScopeDoc, doc.ID, "bathroom_limit", "5")

	if err := s.PurgeDocument(doc.ID); err != nil {
		t.Fatalf("PurgeDocument: %v", err)
	}
	if _, err := s.GetDocument(doc.ID); err != ErrDocNotFound {
		t.Fatalf("expected document gone, got %v", err)
	}
	n, _ := s.RowCount(doc.ID, SheetLog)
	if n != 0 {
		t.Fatalf("expected rows purged, got %d", n)
	}
	if _, ok, _ := s.GetProp(ScopeDoc, doc.ID, "bathroom_limit"); ok {
		t.Fatalf("expected doc props purged")
	}
}
