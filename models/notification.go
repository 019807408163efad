package models

import (
	"time"

	"gorm.io/gorm"
)

// SequenceNotification is an append-only event row. The engine creates
// these; a delivery system consumes them. Never mutated or deleted here
// apart from the consumer marking rows consumed.
type SequenceNotification struct {
	gorm.Model
	OrgID        uint  `gorm:"not null;index" json:"org_id"`
	SequenceID   uint  `gorm:"not null;index" json:"sequence_id"`
	EnrollmentID uint  `gorm:"not null;index" json:"enrollment_id"`
	AssignmentID *uint `gorm:"index" json:"assignment_id"`

	// Member the notification is addressed to (the resolved assignee)
	MemberID uint `gorm:"not null;index" json:"member_id"`

	EventType string `gorm:"not null;index" json:"event_type"` // assignment_created, due_today, overdue

	Payload NotificationPayload `gorm:"type:jsonb;serializer:json" json:"payload"`

	// DedupeKey guarantees at most one due_today event per assignment per
	// local calendar day across repeated engine runs
	DedupeKey *string `gorm:"index" json:"dedupe_key"`

	ConsumedAt *time.Time `json:"consumed_at"`
}

// NotificationPayload carries event details for the delivery system
type NotificationPayload struct {
	EventID string     `json:"event_id"`
	StepID  uint       `json:"step_id,omitempty"`
	DueAt   *time.Time `json:"due_at,omitempty"`
}

// Notification event types
const (
	NotificationAssignmentCreated = "assignment_created"
	NotificationDueToday          = "due_today"
	NotificationOverdue           = "overdue"
)
