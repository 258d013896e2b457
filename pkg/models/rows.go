package models

import (
	"strconv"
	"strings"
)

// Row records are parsed once at the storage boundary; everything above the
// store works with these typed shapes, never raw cell slices.

// RosterRow is one student enrollment: display name, class period and an
// optional scan id. Names are matched first-wins when duplicated.
type RosterRow struct {
	Name      string `json:"name"`
	Period    string `json:"period"`
	StudentID string `json:"student_id,omitempty"`
}

// Cells renders the row for sheet storage.
func (r RosterRow) Cells() []string {
	return []string{r.Name, r.Period, r.StudentID}
}

// RosterRowFromCells parses a raw sheet row. Returns ok=false for blank rows.
func RosterRowFromCells(cells []string) (RosterRow, bool) {
	var r RosterRow
	if len(cells) > 0 {
		r.Name = strings.TrimSpace(cells[0])
	}
	if len(cells) > 1 {
		r.Period = strings.TrimSpace(cells[1])
	}
	if len(cells) > 2 {
		r.StudentID = strings.TrimSpace(cells[2])
	}
	if r.Name == "" && r.Period == "" && r.StudentID == "" {
		return r, false
	}
	return r, true
}

// LogEntry is one disciplinary issue record. Append-only except for the
// single-row undo path.
type LogEntry struct {
	TS      int64  `json:"ts"`
	Student string `json:"student"`
	Period  string `json:"period"`
	Issue   string `json:"issue"`
	Notes   string `json:"notes,omitempty"`
}

func (e LogEntry) Cells() []string {
	return []string{strconv.FormatInt(e.TS, 10), e.Student, e.Period, e.Issue, e.Notes}
}

func LogEntryFromCells(cells []string) (LogEntry, bool) {
	var e LogEntry
	if len(cells) < 4 {
		return e, false
	}
	e.TS, _ = strconv.ParseInt(strings.TrimSpace(cells[0]), 10, 64)
	e.Student = strings.TrimSpace(cells[1])
	e.Period = strings.TrimSpace(cells[2])
	e.Issue = strings.TrimSpace(cells[3])
	if len(cells) > 4 {
		e.Notes = cells[4]
	}
	if e.Student == "" && e.Issue == "" {
		return e, false
	}
	return e, true
}

// Direction of a bathroom event.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// BathroomEvent is one check-out or check-in scan. Minutes is only set on
// "in" events and holds the rounded duration of the completed trip.
type BathroomEvent struct {
	TS        int64     `json:"ts"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Period    string    `json:"period"`
	Direction Direction `json:"direction"`
	Minutes   int       `json:"minutes,omitempty"`
}

func (e BathroomEvent) Cells() []string {
	mins := ""
	if e.Direction == DirectionIn {
		mins = strconv.Itoa(e.Minutes)
	}
	return []string{strconv.FormatInt(e.TS, 10), e.StudentID, e.Name, e.Period, string(e.Direction), mins}
}

func BathroomEventFromCells(cells []string) (BathroomEvent, bool) {
	var e BathroomEvent
	if len(cells) < 5 {
		return e, false
	}
	e.TS, _ = strconv.ParseInt(strings.TrimSpace(cells[0]), 10, 64)
	e.StudentID = strings.TrimSpace(cells[1])
	e.Name = strings.TrimSpace(cells[2])
	e.Period = strings.TrimSpace(cells[3])
	switch Direction(strings.TrimSpace(cells[4])) {
	case DirectionOut:
		e.Direction = DirectionOut
	case DirectionIn:
		e.Direction = DirectionIn
	default:
		return e, false
	}
	if len(cells) > 5 && cells[5] != "" {
		e.Minutes, _ = strconv.Atoi(strings.TrimSpace(cells[5]))
	}
	if e.StudentID == "" {
		return e, false
	}
	return e, true
}
