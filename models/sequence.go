package models

import "gorm.io/gorm"

// Sequence represents an automation definition owned by an organization
type Sequence struct {
	gorm.Model
	OrgID uint `gorm:"not null;index" json:"org_id"`

	Name   string `gorm:"not null" json:"name"`
	Status string `gorm:"default:'draft'" json:"status"` // draft, active, archived

	// Default kind of target enrolled into this sequence
	TargetKind string `gorm:"default:'contact'" json:"target_kind"` // contact, member

	// Relations
	Versions []SequenceVersion `gorm:"foreignKey:SequenceID" json:"versions,omitempty"`
}

// SequenceVersion is an immutable configuration snapshot of a sequence.
// Enrollments reference a version; the engine only ever reads these rows.
type SequenceVersion struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`

	VersionNumber int `gorm:"not null;default:1" json:"version_number"`

	// Work window used to clamp due dates
	Timezone      string `gorm:"default:'UTC'" json:"timezone"`               // IANA zone name
	WorkDays      []int  `gorm:"type:jsonb;serializer:json" json:"work_days"` // ISO weekdays, Monday=1 .. Sunday=7
	WorkStartTime string `gorm:"default:'09:00'" json:"work_start_time"`      // HH:MM[:SS]
	WorkEndTime   string `gorm:"default:'18:00'" json:"work_end_time"`        // HH:MM[:SS]
	ClampEnabled  bool   `gorm:"default:true" json:"clamp_enabled"`

	// What happens to active enrollments when a newer version is published
	PublishStrategy string `gorm:"default:'terminate'" json:"publish_strategy"` // terminate, migrate

	// Relations
	Steps []SequenceStep `gorm:"foreignKey:VersionID" json:"steps,omitempty"`
}

// SequenceStep is one ordered unit of work within a version
type SequenceStep struct {
	gorm.Model
	VersionID uint `gorm:"not null;index" json:"version_id"`

	OrderIndex int    `gorm:"not null" json:"order_index"`
	Type       string `gorm:"default:'general_task'" json:"type"` // general_task, call_task

	// Who the created assignment is handed to
	AssigneeMode         string `gorm:"default:'owner'" json:"assignee_mode"` // owner, org, custom
	AssigneeMembershipID *uint  `json:"assignee_membership_id"`

	// Due offset from the enrollment anchor
	DueOffsetDays  int `gorm:"default:0" json:"due_offset_days"`
	DueOffsetHours int `gorm:"default:0" json:"due_offset_hours"`

	// Prerequisite step ids within the same version; empty means no dependencies
	DependsOn []uint `gorm:"type:jsonb;serializer:json" json:"depends_on"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// When true, every later step in the enrollment is held until this
	// step's assignment is done
	PauseUntilDone bool `gorm:"default:false" json:"pause_until_done"`
}

// Sequence statuses
const (
	SequenceStatusDraft    = "draft"
	SequenceStatusActive   = "active"
	SequenceStatusArchived = "archived"
)

// Target kinds
const (
	TargetKindContact = "contact"
	TargetKindMember  = "member"
)

// Step types
const (
	StepTypeGeneralTask = "general_task"
	StepTypeCallTask    = "call_task"
)

// Assignee modes
const (
	AssigneeModeOwner  = "owner"
	AssigneeModeOrg    = "org"
	AssigneeModeCustom = "custom"
)

// Publish strategies
const (
	PublishStrategyTerminate = "terminate"
	PublishStrategyMigrate   = "migrate"
)
