package engine

import (
	"time"

	"taskforge/models"
)

// ComputeDue combines the enrollment anchor with the step's day/hour
// offset and clamps the result into the window. A missing anchor means
// the step has no due date.
func ComputeDue(enrollment models.SequenceEnrollment, step models.SequenceStep, window WorkWindow) *time.Time {
	anchor := enrollment.EnrolledAt
	if enrollment.ResumedAt != nil {
		anchor = *enrollment.ResumedAt
	}
	if anchor.IsZero() {
		return nil
	}

	// Offsets are additive UTC arithmetic; timezone conversion happens
	// inside Clamp only
	candidate := anchor.UTC().
		Add(time.Duration(step.DueOffsetDays) * 24 * time.Hour).
		Add(time.Duration(step.DueOffsetHours) * time.Hour)

	due := window.Clamp(candidate)
	return &due
}
