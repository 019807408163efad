package models

import (
	"time"

	"gorm.io/gorm"
)

// SequenceEnrollment is one target progressing through one sequence version
type SequenceEnrollment struct {
	gorm.Model
	OrgID      uint `gorm:"not null;index" json:"org_id"`
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`
	VersionID  uint `gorm:"not null;index" json:"version_id"`

	TargetKind string `gorm:"not null" json:"target_kind"` // contact, member
	TargetID   uint   `gorm:"not null;index" json:"target_id"`

	Status string `gorm:"default:'active';index" json:"status"` // active, paused, completed, terminated

	// EnrolledAt anchors due-date math; ResumedAt replaces it after a resume
	EnrolledAt  time.Time  `gorm:"not null" json:"enrolled_at"`
	ResumedAt   *time.Time `json:"resumed_at"`
	PausedAt    *time.Time `json:"paused_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Fallback assignee and "owner" resolution
	CreatedByMembershipID uint `gorm:"not null" json:"created_by_membership_id"`

	// Relations
	Assignments []SequenceAssignment `gorm:"foreignKey:EnrollmentID" json:"assignments,omitempty"`
}

// SequenceAssignment is the mutable unit the engine owns. Exactly one row
// exists per (step, enrollment) pair; the composite unique index makes the
// pair identity database-enforced so overlapping runs cannot duplicate it.
type SequenceAssignment struct {
	gorm.Model
	OrgID        uint `gorm:"not null;index" json:"org_id"`
	EnrollmentID uint `gorm:"not null;uniqueIndex:idx_step_enrollment" json:"enrollment_id"`
	StepID       uint `gorm:"not null;uniqueIndex:idx_step_enrollment" json:"step_id"`

	Status string `gorm:"default:'open'" json:"status"` // open, snoozed, done, blocked

	DueAt        *time.Time `json:"due_at"`
	SnoozedUntil *time.Time `json:"snoozed_until"`
	DoneAt       *time.Time `json:"done_at"`    // written externally, terminal for the engine
	OverdueAt    *time.Time `json:"overdue_at"` // set once by the engine, cleared when the due date moves forward

	BlockedReason string `json:"blocked_reason"`

	AssigneeMembershipID *uint `json:"assignee_membership_id"`
}

// Enrollment statuses
const (
	EnrollmentStatusActive     = "active"
	EnrollmentStatusPaused     = "paused"
	EnrollmentStatusCompleted  = "completed"
	EnrollmentStatusTerminated = "terminated"
)

// Assignment statuses
const (
	AssignmentStatusOpen    = "open"
	AssignmentStatusSnoozed = "snoozed"
	AssignmentStatusDone    = "done"
	AssignmentStatusBlocked = "blocked"
)
