package service

import (
	"fmt"
	"math"

	"classlog/pkg/aggregate"
	"classlog/pkg/errs"
	"classlog/pkg/logger"
	"classlog/pkg/models"
	"classlog/pkg/store"
)

// RecordBathroomEvent runs the check-in/out state machine for one scanned
// student id. Unlike the batch write paths this raises typed errors so the
// kiosk can format them: NotFound for unknown ids, LimitReached when the
// daily cap is hit, ErrLockTimeout under contention.
//
// A student with no open trip checks out (if under today's limit); a
// student mid-trip checks in with the rounded duration. Trip pairing uses
// the most recent event regardless of day, so a trip opened before midnight
// still closes cleanly; only the limit is bounded to today.
func (s *Service) RecordBathroomEvent(studentID string) (string, error) {
	doc, err := s.resolver.ResolveOrFail()
	if err != nil {
		return "", err
	}

	handle, err := s.locks.Acquire(doc.ID, s.opts.ScanLockTimeout)
	if err != nil {
		if lockBusy(err) {
			return "", fmt.Errorf("scanner busy: %w", err)
		}
		return "", err
	}
	defer handle.Release()

	roster, err := s.readRoster(doc.ID)
	if err != nil {
		return "", fmt.Errorf("read roster: %w", err)
	}
	var student *models.RosterRow
	for i := range roster {
		if roster[i].StudentID == studentID {
			student = &roster[i]
			break
		}
	}
	if student == nil {
		return "", &errs.NotFoundError{StudentID: studentID}
	}

	events, err := s.readBathroom(doc.ID)
	if err != nil {
		return "", fmt.Errorf("read bathroom log: %w", err)
	}

	now := s.now()
	last := aggregate.LatestEvent(events, studentID)

	if last == nil || last.Direction == models.DirectionIn {
		// OUTSIDE -> OUT
		limit := s.bathroomLimit(doc.ID)
		if aggregate.TripsToday(events, studentID, now) >= limit {
			return "", &errs.LimitReachedError{Student: student.Name, Limit: limit}
		}
		out := models.BathroomEvent{
			TS:        now.UnixMilli(),
			StudentID: studentID,
			Name:      student.Name,
			Period:    student.Period,
			Direction: models.DirectionOut,
		}
		if err := s.kv.AppendRow(doc.ID, store.SheetBathroom, out.Cells()); err != nil {
			return "", fmt.Errorf("write checkout: %w", err)
		}
		if _, err := s.versions.Bump(doc.ID); err != nil {
			logger.Warn("scan_bump_failed", "doc", doc.ID, "error", err)
		}
		logger.Info("bathroom_out", "doc", doc.ID, "student", student.Name)
		logger.AuditEvent("bathroom_scan", "doc", doc.ID, "student", student.Name, "direction", models.DirectionOut)
		return fmt.Sprintf("%s checked OUT at %s", student.Name, now.Format("3:04 PM")), nil
	}

	// OUT -> OUTSIDE
	minutes := int(math.Round(float64(now.UnixMilli()-last.TS) / 60000.0))
	in := models.BathroomEvent{
		TS:        now.UnixMilli(),
		StudentID: studentID,
		Name:      student.Name,
		Period:    student.Period,
		Direction: models.DirectionIn,
		Minutes:   minutes,
	}
	if err := s.kv.AppendRow(doc.ID, store.SheetBathroom, in.Cells()); err != nil {
		return "", fmt.Errorf("write checkin: %w", err)
	}
	if _, err := s.versions.Bump(doc.ID); err != nil {
		logger.Warn("scan_bump_failed", "doc", doc.ID, "error", err)
	}
	logger.Info("bathroom_in", "doc", doc.ID, "student", student.Name, "minutes", minutes)
	logger.AuditEvent("bathroom_scan", "doc", doc.ID, "student", student.Name, "direction", models.DirectionIn, "minutes", minutes)
	return fmt.Sprintf("%s checked IN after %d min", student.Name, minutes), nil
}
