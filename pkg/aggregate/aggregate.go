// Package aggregate derives the cached payloads from parsed sheet rows.
// Everything here is a pure function of its inputs (plus an explicit "now"
// where the day boundary matters), which is what makes the versioned cache
// sound: the same rows at the same version always produce the same bytes.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"classlog/pkg/models"
)

// RosterAndIssues derives the roster/issue picker data: sorted unique
// periods, sorted unique trimmed names per period, and the issue labels in
// sheet order.
func RosterAndIssues(roster []models.RosterRow, issues []string) models.RosterData {
	periodSet := map[string]struct{}{}
	perNames := map[string]map[string]struct{}{}
	for _, r := range roster {
		name := strings.TrimSpace(r.Name)
		period := strings.TrimSpace(r.Period)
		if period == "" {
			continue
		}
		periodSet[period] = struct{}{}
		if name == "" {
			continue
		}
		if perNames[period] == nil {
			perNames[period] = map[string]struct{}{}
		}
		perNames[period][name] = struct{}{}
	}

	out := models.RosterData{
		Periods: make([]string, 0, len(periodSet)),
		PerMap:  make(map[string][]string, len(perNames)),
		Issues:  append([]string(nil), issues...),
	}
	for p := range periodSet {
		out.Periods = append(out.Periods, p)
	}
	sort.Strings(out.Periods)
	for p, names := range perNames {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		out.PerMap[p] = list
	}
	return out
}

// CountSnapshot builds the per-period count matrix. Issue labels define the
// columns, roster names for the period define the rows; one pass over the
// log increments matched cells while unknown issues or students are
// silently skipped. An empty roster or issue list yields an all-zero
// structure, not an absent one.
func CountSnapshot(period string, issues []string, roster []models.RosterRow, logs []models.LogEntry) models.CountSnapshot {
	issueIdx := make(map[string]int, len(issues))
	for i, label := range issues {
		issueIdx[label] = i
	}

	names := rosterNamesForPeriod(roster, period)
	rowIdx := make(map[string]int, len(names))
	rows := make([]models.CountRow, len(names))
	for i, n := range names {
		rowIdx[n] = i
		rows[i] = models.CountRow{Student: n, Counts: make([]int, len(issues))}
	}

	total := 0
	for _, e := range logs {
		if e.Period != period {
			continue
		}
		ri, ok := rowIdx[e.Student]
		if !ok {
			continue
		}
		ci, ok := issueIdx[e.Issue]
		if !ok {
			continue
		}
		rows[ri].Counts[ci]++
		rows[ri].Total++
		total++
	}

	snap := models.CountSnapshot{
		Period:        period,
		Issues:        append([]string(nil), issues...),
		Rows:          rows,
		TotalsByIssue: make([]models.IssueTotal, len(issues)),
		TotalLogs:     total,
	}
	for i, label := range issues {
		n := 0
		for _, r := range rows {
			n += r.Counts[i]
		}
		snap.TotalsByIssue[i] = models.IssueTotal{Issue: label, Count: n}
		if n > 0 {
			snap.IssueVariety++
		}
	}
	for _, r := range rows {
		if r.Total == 0 {
			snap.ZeroStudents++
		}
	}
	return snap
}

// rosterNamesForPeriod returns sorted unique non-blank names enrolled in
// the period.
func rosterNamesForPeriod(roster []models.RosterRow, period string) []string {
	set := map[string]struct{}{}
	for _, r := range roster {
		if strings.TrimSpace(r.Period) != period {
			continue
		}
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Status partitions today's scanned students by the direction of their most
// recent event, optionally filtered to one period. Both lists come back
// sorted by student name.
func Status(events []models.BathroomEvent, period string, now time.Time) models.BathroomStatus {
	latest := map[string]models.BathroomEvent{}
	for _, e := range events {
		if !SameDay(e.TS, now) {
			continue
		}
		if period != "" && e.Period != period {
			continue
		}
		if prev, ok := latest[e.StudentID]; !ok || e.TS >= prev.TS {
			latest[e.StudentID] = e
		}
	}

	status := models.BathroomStatus{Out: []models.BathroomOut{}, In: []models.BathroomIn{}}
	for _, e := range latest {
		switch e.Direction {
		case models.DirectionOut:
			status.Out = append(status.Out, models.BathroomOut{
				StudentID: e.StudentID, Name: e.Name, Period: e.Period, OutSince: e.TS,
			})
		case models.DirectionIn:
			status.In = append(status.In, models.BathroomIn{
				StudentID: e.StudentID, Name: e.Name, Period: e.Period, LastMinutes: e.Minutes,
			})
		}
	}
	sort.Slice(status.Out, func(i, j int) bool { return status.Out[i].Name < status.Out[j].Name })
	sort.Slice(status.In, func(i, j int) bool { return status.In[i].Name < status.In[j].Name })
	return status
}

// Analytics totals today's completed trips per student and per period.
// Only "in" events carry a duration, so only they contribute.
func Analytics(events []models.BathroomEvent, now time.Time) models.BathroomAnalytics {
	out := models.BathroomAnalytics{
		ByStudent: map[string]models.BathroomTally{},
		ByPeriod:  map[string]models.BathroomTally{},
	}
	for _, e := range events {
		if e.Direction != models.DirectionIn || !SameDay(e.TS, now) {
			continue
		}
		st := out.ByStudent[e.Name]
		st.Visits++
		st.Minutes += e.Minutes
		out.ByStudent[e.Name] = st

		pt := out.ByPeriod[e.Period]
		pt.Visits++
		pt.Minutes += e.Minutes
		out.ByPeriod[e.Period] = pt
	}
	return out
}

// LatestEvent returns the most recent event for a student regardless of
// day, so a trip opened before midnight still closes as a pair. Returns nil
// when the student has never scanned.
func LatestEvent(events []models.BathroomEvent, studentID string) *models.BathroomEvent {
	var latest *models.BathroomEvent
	for i := range events {
		e := &events[i]
		if e.StudentID != studentID {
			continue
		}
		if latest == nil || e.TS >= latest.TS {
			latest = e
		}
	}
	return latest
}

// TripsToday counts a student's "out" scans today; this is the quantity the
// trip limit is enforced against. Note the asymmetry with LatestEvent: the
// cap is day-bounded while trip pairing is not.
func TripsToday(events []models.BathroomEvent, studentID string, now time.Time) int {
	n := 0
	for _, e := range events {
		if e.StudentID == studentID && e.Direction == models.DirectionOut && SameDay(e.TS, now) {
			n++
		}
	}
	return n
}

// SameDay reports whether the millisecond timestamp falls on the same
// calendar day as now, midnight to midnight in now's location.
func SameDay(tsMillis int64, now time.Time) bool {
	t := time.UnixMilli(tsMillis).In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
