package service

import (
	"errors"
	"testing"
	"time"

	"classlog/pkg/attach"
	"classlog/pkg/cache"
	"classlog/pkg/errs"
	"classlog/pkg/locks"
	"classlog/pkg/store"
	"classlog/pkg/version"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	kv, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	caches := cache.New(kv)
	versions := version.New(kv)
	lm := locks.NewManager(t.TempDir())
	resolver := attach.NewResolver(kv, versions, caches)
	return New(kv, caches, versions, lm, resolver, Options{})
}

// buildFixture creates a document with sheets and a small roster/issue set.
func buildFixture(t *testing.T, s *Service) string {
	t.Helper()
	res := s.BuildSheets("Test Doc", false)
	if !res.OK {
		t.Fatalf("BuildSheets: %s", res.Message)
	}
	roster := [][]string{
		{"Ana", "1", "1001"},
		{"Ben", "1", "1002"},
		{"Cam", "2", "1003"},
	}
	if err := s.kv.AppendRows(res.DocID, store.SheetRoster, roster); err != nil {
		t.Fatalf("seed roster: %v", err)
	}
	issues := [][]string{{"Tardy"}, {"Off Task"}}
	if err := s.kv.AppendRows(res.DocID, store.SheetIssues, issues); err != nil {
		t.Fatalf("seed issues: %v", err)
	}
	return res.DocID
}

func TestGetAppStateUnattached(t *testing.T) {
	s := newTestService(t)
	st := s.GetAppState()
	if st.Attached {
		t.Fatalf("expected unattached state, got %+v", st)
	}
}

func TestBuildSheetsCreatesAndSeeds(t *testing.T) {
	s := newTestService(t)
	res := s.BuildSheets("Period Tracker", true)
	if !res.OK || res.DocID == "" {
		t.Fatalf("BuildSheets: %+v", res)
	}

	st := s.GetAppState()
	if !st.Attached || st.DocID != res.DocID {
		t.Fatalf("expected attached state, got %+v", st)
	}
	if !st.SheetsPresent.Roster || !st.SheetsPresent.Issues || !st.SheetsPresent.Log || !st.SheetsPresent.Counts {
		t.Fatalf("expected all sheets present: %+v", st.SheetsPresent)
	}
	if !st.HasData.Roster || !st.HasData.Issues {
		t.Fatalf("expected seeded roster/issues: %+v", st.HasData)
	}
	if st.HasData.Log {
		t.Fatalf("log should start empty")
	}
	if v := s.versions.Get(res.DocID); v == 0 {
		t.Fatalf("seeding must bump the version")
	}

	// second build is idempotent and does not re-seed
	res2 := s.BuildSheets("Period Tracker", true)
	if !res2.OK || res2.DocID != res.DocID {
		t.Fatalf("rebuild: %+v", res2)
	}
	rows, _ := s.kv.Rows(res.DocID, store.SheetRoster)
	if len(rows) != 3 {
		t.Fatalf("re-seed duplicated roster: %d rows", len(rows))
	}
}

func TestLogEntriesFiltersAndWrites(t *testing.T) {
	s := newTestService(t)
	docID := buildFixture(t, s)

	res := s.LogEntries(LogRequest{Entries: []LogRequestEntry{
		{Student: "Ana", Issue: "Tardy"},
		{Student: "Cam", Issue: "Off Task", Notes: "again"},
		{Student: "", Issue: "Tardy"},         // missing student
		{Student: "Ana", Issue: ""},           // missing issue
		{Student: "Nobody", Issue: "Tardy"},   // not on roster
	}})
	if !res.OK {
		t.Fatalf("LogEntries: %s", res.Message)
	}

	entries, _, err := s.readLog(docID)
	if err != nil {
		t.Fatalf("readLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 written entries, got %d", len(entries))
	}
	// period comes from the roster, not the caller
	if entries[0].Period != "1" || entries[1].Period != "2" {
		t.Fatalf("periods not taken from roster: %+v", entries)
	}
	if entries[1].Notes != "again" {
		t.Fatalf("notes lost: %+v", entries[1])
	}
}

func TestLogEntriesAllInvalid(t *testing.T) {
	s := newTestService(t)
	buildFixture(t, s)

	res := s.LogEntries(LogRequest{Entries: []LogRequestEntry{
		{Student: "Nobody", Issue: "Tardy"},
	}})
	if res.OK {
		t.Fatalf("expected failure for fully-filtered batch")
	}
	if res.Message != errs.ErrNoValidEntries.Error() {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestLogEntriesUnattached(t *testing.T) {
	s := newTestService(t)
	res := s.LogEntries(LogRequest{Entries: []LogRequestEntry{{Student: "Ana", Issue: "Tardy"}}})
	if res.OK {
		t.Fatalf("expected failure with no document")
	}
}

func TestDeleteLastEntryRemovesMostRecent(t *testing.T) {
	s := newTestService(t)
	docID := buildFixture(t, s)

	_ = s.LogEntries(LogRequest{Entries: []LogRequestEntry{{Student: "Ana", Issue: "Tardy"}}, TS: 1000})
	_ = s.LogEntries(LogRequest{Entries: []LogRequestEntry{{Student: "Ana", Issue: "Tardy"}}, TS: 2000})
	_ = s.LogEntries(LogRequest{Entries: []LogRequestEntry{{Student: "Ben", Issue: "Tardy"}}, TS: 3000})

	res := s.DeleteLastEntry("Ana", "Tardy", "")
	if !res.OK || res.Row == nil {
		t.Fatalf("DeleteLastEntry: %+v", res)
	}
	if res.Row.TS != 2000 {
		t.Fatalf("removed wrong entry: %+v", res.Row)
	}

	entries, _, _ := s.readLog(docID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 remaining entries, got %d", len(entries))
	}

	// no match leaves the log alone
	res = s.DeleteLastEntry("Ana", "Off Task", "")
	if res.OK {
		t.Fatalf("expected no-match failure")
	}
	if res.Message != errs.ErrNoMatch.Error() {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestDeleteLastEntryPeriodFilter(t *testing.T) {
	s := newTestService(t)
	buildFixture(t, s)
	_ = s.LogEntries(LogRequest{Entries: []LogRequestEntry{{Student: "Ana", Issue: "Tardy"}}})

	// Ana is period 1; filtering on period 2 must not match
	res := s.DeleteLastEntry("Ana", "Tardy", "2")
	if res.OK {
		t.Fatalf("expected period-filtered no-match")
	}
	res = s.DeleteLastEntry("Ana", "Tardy", "1")
	if !res.OK {
		t.Fatalf("period-matched undo failed: %s", res.Message)
	}
}

func TestClearAllLogs(t *testing.T) {
	s := newTestService(t)
	docID := buildFixture(t, s)
	_ = s.LogEntries(LogRequest{Entries: []LogRequestEntry{
		{Student: "Ana", Issue: "Tardy"},
		{Student: "Ben", Issue: "Tardy"},
	}})

	res := s.ClearAllLogs()
	if !res.OK {
		t.Fatalf("ClearAllLogs: %s", res.Message)
	}
	n, _ := s.kv.RowCount(docID, store.SheetLog)
	if n != 0 {
		t.Fatalf("expected empty log, got %d rows", n)
	}
}

func TestCountsCacheInvalidatedByWrite(t *testing.T) {
	s := newTestService(t)
	buildFixture(t, s)

	snap, err := s.GetCountsSnapshot("1")
	if err != nil {
		t.Fatalf("GetCountsSnapshot: %v", err)
	}
	if snap.TotalLogs != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
	// second read comes from cache and matches
	snap2, _ := s.GetCountsSnapshot("1")
	if snap2.TotalLogs != 0 || len(snap2.Rows) != len(snap.Rows) {
		t.Fatalf("cached read diverged: %+v", snap2)
	}

	res := s.LogEntries(LogRequest{Entries: []LogRequestEntry{{Student: "Ana", Issue: "Tardy"}}})
	if !res.OK {
		t.Fatalf("LogEntries: %s", res.Message)
	}

	// the bump retires the cached snapshot; the next read must see the write
	snap3, err := s.GetCountsSnapshot("1")
	if err != nil {
		t.Fatalf("GetCountsSnapshot after write: %v", err)
	}
	if snap3.TotalLogs != 1 {
		t.Fatalf("stale snapshot served after write: %+v", snap3)
	}
}

func TestGetDataReadsThrough(t *testing.T) {
	s := newTestService(t)
	buildFixture(t, s)

	data, err := s.GetData()
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(data.Periods) != 2 || len(data.PerMap["1"]) != 2 {
		t.Fatalf("unexpected roster data: %+v", data)
	}
	if len(data.Issues) != 2 {
		t.Fatalf("unexpected issues: %+v", data.Issues)
	}

	// unattached read raises
	s2 := newTestService(t)
	if _, err := s2.GetData(); !errors.Is(err, errs.ErrNotAttached) {
		t.Fatalf("expected ErrNotAttached, got %v", err)
	}
}

func TestBathroomScanRoundTrip(t *testing.T) {
	s := newTestService(t)
	buildFixture(t, s)

	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	s.now = func() time.Time { return base }

	msg, err := s.RecordBathroomEvent("1001")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if msg != "Ana checked OUT at 10:00 AM" {
		t.Fatalf("unexpected message %q", msg)
	}

	st, err := s.GetBathroomStatus("")
	if err != nil {
		t.Fatalf("GetBathroomStatus: %v", err)
	}
	if len(st.Out) != 1 || st.Out[0].Name != "Ana" {
		t.Fatalf("expected Ana out: %+v", st)
	}

	// check back in 7 minutes later
	s.now = func() time.Time { return base.Add(7 * time.Minute) }
	msg, err = s.RecordBathroomEvent("1001")
	if err != nil {
		t.Fatalf("checkin: %v", err)
	}
	if msg != "Ana checked IN after 7 min" {
		t.Fatalf("unexpected message %q", msg)
	}

	an, err := s.GetBathroomAnalytics()
	if err != nil {
		t.Fatalf("GetBathroomAnalytics: %v", err)
	}
	if tally := an.ByStudent["Ana"]; tally.Visits != 1 || tally.Minutes != 7 {
		t.Fatalf("unexpected tally %+v", tally)
	}
}

func TestBathroomDailyLimit(t *testing.T) {
	s := newTestService(t)
	buildFixture(t, s)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		s.now = func() time.Time { return base.Add(time.Duration(i*20) * time.Minute) }
		if _, err := s.RecordBathroomEvent("1001"); err != nil {
			t.Fatalf("checkout %d: %v", i+1, err)
		}
		s.now = func() time.Time { return base.Add(time.Duration(i*20+5) * time.Minute) }
		if _, err := s.RecordBathroomEvent("1001"); err != nil {
			t.Fatalf("checkin %d: %v", i+1, err)
		}
	}

	// fourth trip hits the default limit of 3
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err := s.RecordBathroomEvent("1001")
	var limErr *errs.LimitReachedError
	if !errors.As(err, &limErr) {
		t.Fatalf("expected LimitReachedError, got %v", err)
	}
	if limErr.Student != "Ana" || limErr.Limit != 3 {
		t.Fatalf("unexpected error details %+v", limErr)
	}

	// the refused scan must not have written a row
	doc, _ := s.resolver.ResolveOrFail()
	events, _ := s.readBathroom(doc.ID)
	if len(events) != 6 {
		t.Fatalf("refused scan wrote a row: %d events", len(events))
	}
}

func TestBathroomUnknownStudent(t *testing.T) {
	s := newTestService(t)
	buildFixture(t, s)

	_, err := s.RecordBathroomEvent("9999")
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.StudentID != "9999" {
		t.Fatalf("unexpected id %q", nf.StudentID)
	}
}

func TestBathroomLimitConfigurable(t *testing.T) {
	s := newTestService(t)
	docID := buildFixture(t, s)

	if err := s.kv.SetProp(store.ScopeDoc, docID, "bathroom_limit", "1"); err != nil {
		t.Fatalf("SetProp: %v", err)
	}

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	s.now = func() time.Time { return base }
	if _, err := s.RecordBathroomEvent("1001"); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	s.now = func() time.Time { return base.Add(5 * time.Minute) }
	if _, err := s.RecordBathroomEvent("1001"); err != nil {
		t.Fatalf("checkin: %v", err)
	}
	s.now = func() time.Time { return base.Add(10 * time.Minute) }
	_, err := s.RecordBathroomEvent("1001")
	var limErr *errs.LimitReachedError
	if !errors.As(err, &limErr) || limErr.Limit != 1 {
		t.Fatalf("expected limit 1 reached, got %v", err)
	}
}

func TestTrashedDocumentDetaches(t *testing.T) {
	s := newTestService(t)
	docID := buildFixture(t, s)

	if err := s.kv.TrashDocument(docID); err != nil {
		t.Fatalf("TrashDocument: %v", err)
	}
	st := s.GetAppState()
	if st.Attached {
		t.Fatalf("expected detached state after trash, got %+v", st)
	}
}
