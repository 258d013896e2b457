package models

// RosterData is the cached roster/issue view the UI builds its pickers from.
type RosterData struct {
	Periods []string            `json:"periods"`
	PerMap  map[string][]string `json:"perMap"`
	Issues  []string            `json:"issues"`
}

// CountRow is one student's issue counts in a period, column order given by
// CountSnapshot.Issues.
type CountRow struct {
	Student string `json:"student"`
	Counts  []int  `json:"counts"`
	Total   int    `json:"total"`
}

type IssueTotal struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// CountSnapshot is the per-period count matrix plus its rollups.
type CountSnapshot struct {
	Period        string       `json:"period"`
	Issues        []string     `json:"issues"`
	Rows          []CountRow   `json:"rows"`
	TotalsByIssue []IssueTotal `json:"totalsByIssue"`
	TotalLogs     int          `json:"totalLogs"`
	ZeroStudents  int          `json:"zeroStudents"`
	IssueVariety  int          `json:"issueVariety"`
}

// BathroomOut is a student currently out, with the checkout time.
type BathroomOut struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Period    string `json:"period"`
	OutSince  int64  `json:"out_since"`
}

// BathroomIn is a student currently in, with their last trip duration.
type BathroomIn struct {
	StudentID   string `json:"student_id"`
	Name        string `json:"name"`
	Period      string `json:"period"`
	LastMinutes int    `json:"last_minutes"`
}

// BathroomStatus partitions today's scanned students by current direction.
// Both lists are sorted by student name.
type BathroomStatus struct {
	Out []BathroomOut `json:"out"`
	In  []BathroomIn  `json:"in"`
}

// BathroomTally accumulates completed trips only.
type BathroomTally struct {
	Visits  int `json:"visits"`
	Minutes int `json:"minutes"`
}

// BathroomAnalytics holds today's per-student and per-period trip totals.
type BathroomAnalytics struct {
	ByStudent map[string]BathroomTally `json:"byStudent"`
	ByPeriod  map[string]BathroomTally `json:"byPeriod"`
}
