package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classlog/pkg/models"
)

func TestRosterAndIssues(t *testing.T) {
	roster := []models.RosterRow{
		{Name: " Ben ", Period: "2", StudentID: "1002"},
		{Name: "Ana", Period: "1", StudentID: "1001"},
		{Name: "Ana", Period: "1", StudentID: "1001"}, // duplicate row
		{Name: "Cam", Period: "1", StudentID: "1003"},
		{Name: "NoPeriod", Period: "", StudentID: "1004"},
		{Name: "", Period: "3", StudentID: "1005"}, // blank name still registers the period
	}
	issues := []string{"Tardy", "Off Task"}

	data := RosterAndIssues(roster, issues)
	assert.Equal(t, []string{"1", "2", "3"}, data.Periods)
	assert.Equal(t, []string{"Ana", "Cam"}, data.PerMap["1"])
	assert.Equal(t, []string{"Ben"}, data.PerMap["2"])
	assert.Empty(t, data.PerMap["3"])
	assert.Equal(t, issues, data.Issues)
}

func TestCountSnapshot(t *testing.T) {
	issues := []string{"Tardy", "Off Task"}
	roster := []models.RosterRow{
		{Name: "A", Period: "1"},
		{Name: "B", Period: "1"},
	}
	logs := []models.LogEntry{
		{Student: "A", Period: "1", Issue: "Tardy"},
		{Student: "A", Period: "1", Issue: "Tardy"},
		{Student: "B", Period: "1", Issue: "Off Task"},
		{Student: "A", Period: "2", Issue: "Tardy"},   // other period
		{Student: "Z", Period: "1", Issue: "Tardy"},   // not on roster
		{Student: "A", Period: "1", Issue: "Unknown"}, // unknown issue
	}

	snap := CountSnapshot("1", issues, roster, logs)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, "A", snap.Rows[0].Student)
	assert.Equal(t, []int{2, 0}, snap.Rows[0].Counts)
	assert.Equal(t, 2, snap.Rows[0].Total)
	assert.Equal(t, []int{0, 1}, snap.Rows[1].Counts)
	assert.Equal(t, 3, snap.TotalLogs)
	assert.Equal(t, 0, snap.ZeroStudents)
	assert.Equal(t, 2, snap.IssueVariety)
	assert.Equal(t, 2, snap.TotalsByIssue[0].Count)
	assert.Equal(t, 1, snap.TotalsByIssue[1].Count)
}

func TestCountSnapshotEmptyInputs(t *testing.T) {
	snap := CountSnapshot("1", nil, nil, nil)
	assert.Equal(t, "1", snap.Period)
	assert.Empty(t, snap.Rows)
	assert.Zero(t, snap.TotalLogs)
	assert.Zero(t, snap.IssueVariety)
	assert.Zero(t, snap.ZeroStudents)
}

func TestCountSnapshotZeroStudents(t *testing.T) {
	roster := []models.RosterRow{{Name: "A", Period: "1"}, {Name: "B", Period: "1"}}
	logs := []models.LogEntry{{Student: "A", Period: "1", Issue: "Tardy"}}
	snap := CountSnapshot("1", []string{"Tardy"}, roster, logs)
	assert.Equal(t, 1, snap.ZeroStudents)
}

func at(t time.Time) int64 { return t.UnixMilli() }

func TestStatusPartitionsByLatestEvent(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	events := []models.BathroomEvent{
		{TS: at(now.Add(-30 * time.Minute)), StudentID: "1", Name: "Ana", Period: "1", Direction: models.DirectionOut},
		{TS: at(now.Add(-20 * time.Minute)), StudentID: "1", Name: "Ana", Period: "1", Direction: models.DirectionIn, Minutes: 10},
		{TS: at(now.Add(-5 * time.Minute)), StudentID: "2", Name: "Ben", Period: "1", Direction: models.DirectionOut},
		// yesterday's open trip is invisible to status
		{TS: at(now.Add(-26 * time.Hour)), StudentID: "3", Name: "Cam", Period: "2", Direction: models.DirectionOut},
	}

	st := Status(events, "", now)
	require.Len(t, st.Out, 1)
	assert.Equal(t, "Ben", st.Out[0].Name)
	require.Len(t, st.In, 1)
	assert.Equal(t, "Ana", st.In[0].Name)
	assert.Equal(t, 10, st.In[0].LastMinutes)

	// period filter
	st = Status(events, "2", now)
	assert.Empty(t, st.Out)
	assert.Empty(t, st.In)
}

func TestAnalyticsCountsCompletedTripsToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	events := []models.BathroomEvent{
		{TS: at(now.Add(-1 * time.Hour)), StudentID: "1", Name: "Ana", Period: "1", Direction: models.DirectionIn, Minutes: 5},
		{TS: at(now.Add(-2 * time.Hour)), StudentID: "1", Name: "Ana", Period: "1", Direction: models.DirectionIn, Minutes: 7},
		{TS: at(now.Add(-1 * time.Hour)), StudentID: "2", Name: "Ben", Period: "2", Direction: models.DirectionIn, Minutes: 3},
		// open trip contributes nothing
		{TS: at(now.Add(-10 * time.Minute)), StudentID: "3", Name: "Cam", Period: "2", Direction: models.DirectionOut},
		// yesterday's trip contributes nothing
		{TS: at(now.Add(-25 * time.Hour)), StudentID: "1", Name: "Ana", Period: "1", Direction: models.DirectionIn, Minutes: 9},
	}

	an := Analytics(events, now)
	assert.Equal(t, models.BathroomTally{Visits: 2, Minutes: 12}, an.ByStudent["Ana"])
	assert.Equal(t, models.BathroomTally{Visits: 1, Minutes: 3}, an.ByStudent["Ben"])
	assert.Equal(t, models.BathroomTally{Visits: 2, Minutes: 12}, an.ByPeriod["1"])
	assert.Equal(t, models.BathroomTally{Visits: 1, Minutes: 3}, an.ByPeriod["2"])
	assert.NotContains(t, an.ByStudent, "Cam")
}

func TestLatestEventCrossesDayBoundary(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 5, 0, 0, time.Local)
	events := []models.BathroomEvent{
		// out just before midnight, still the latest event
		{TS: at(now.Add(-10 * time.Minute)), StudentID: "1", Direction: models.DirectionOut},
		{TS: at(now.Add(-3 * time.Hour)), StudentID: "1", Direction: models.DirectionIn, Minutes: 4},
	}
	last := LatestEvent(events, "1")
	require.NotNil(t, last)
	assert.Equal(t, models.DirectionOut, last.Direction)

	assert.Nil(t, LatestEvent(events, "nope"))
}

func TestTripsTodayIsDayBounded(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	events := []models.BathroomEvent{
		{TS: at(now.Add(-1 * time.Hour)), StudentID: "1", Direction: models.DirectionOut},
		{TS: at(now.Add(-2 * time.Hour)), StudentID: "1", Direction: models.DirectionOut},
		{TS: at(now.Add(-1 * time.Hour)), StudentID: "1", Direction: models.DirectionIn, Minutes: 5},
		{TS: at(now.Add(-26 * time.Hour)), StudentID: "1", Direction: models.DirectionOut},
		{TS: at(now.Add(-1 * time.Hour)), StudentID: "2", Direction: models.DirectionOut},
	}
	assert.Equal(t, 2, TripsToday(events, "1", now))
	assert.Equal(t, 1, TripsToday(events, "2", now))
}

func TestSameDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 1, 0, time.Local)
	if !SameDay(now.UnixMilli(), now) {
		t.Fatalf("timestamp equal to now must be same day")
	}
	if SameDay(now.Add(-2*time.Second).UnixMilli(), now) {
		t.Fatalf("one second before midnight is yesterday")
	}
	if SameDay(now.Add(24*time.Hour).UnixMilli(), now) {
		t.Fatalf("tomorrow is not today")
	}
}
