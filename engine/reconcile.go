package engine

import (
	"time"

	"taskforge/models"
)

// Plan is the desired mutation set for one enrollment, computed fresh from
// the persisted snapshot on every run. Applying an up-to-date snapshot's
// plan twice is a no-op, which is what makes runs re-executable after
// partial failures.
type Plan struct {
	Creates            []AssignmentCreate
	Updates            []AssignmentUpdate
	Notifications      []NotificationDraft // for assignments that already exist
	CompleteEnrollment bool
}

// AssignmentCreate inserts one assignment row; its drafts are emitted only
// after the insert succeeds, with the fresh row id filled in
type AssignmentCreate struct {
	Assignment models.SequenceAssignment
	Notify     []NotificationDraft
}

// AssignmentUpdate patches a subset of columns on an existing row
type AssignmentUpdate struct {
	AssignmentID uint
	Fields       map[string]interface{}
}

// NotificationDraft is a pending sequence_notifications row
type NotificationDraft struct {
	AssignmentID uint // zero while the assignment is still pending insert
	StepID       uint
	EventType    string
	MemberID     uint
	DedupeKey    string // empty when the event needs no dedupe
	DueAt        *time.Time
}

// DedupeRef identifies an already-emitted deduplicated notification
type DedupeRef struct {
	AssignmentID uint
	Key          string
}

func (p *Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Notifications) == 0 && !p.CompleteEnrollment
}

// Reconcile walks the version's active steps in order and computes the plan
// for one enrollment: which assignments to create or patch, which
// notifications to emit, and whether the enrollment is complete.
func Reconcile(
	now time.Time,
	enrollment models.SequenceEnrollment,
	version models.SequenceVersion,
	steps []models.SequenceStep,
	byStep map[uint]*models.SequenceAssignment,
	seen map[DedupeRef]bool,
) Plan {
	window := WindowFromVersion(version)
	loc := window.Location()

	var plan Plan
	gateActive := false
	activeSteps := 0
	doneSteps := 0

	for _, step := range steps {
		if !step.IsActive {
			continue
		}
		activeSteps++

		cur := byStep[step.ID]
		decision, reason := Evaluate(step, byStep, gateActive)
		assignee := resolveAssignee(step, enrollment)

		// Status the gate accumulator sees after this step's mutations
		status := models.AssignmentStatusOpen

		switch {
		case decision != Proceed:
			status = models.AssignmentStatusBlocked
			if cur == nil {
				plan.Creates = append(plan.Creates, AssignmentCreate{
					Assignment: models.SequenceAssignment{
						OrgID:                enrollment.OrgID,
						EnrollmentID:         enrollment.ID,
						StepID:               step.ID,
						Status:               models.AssignmentStatusBlocked,
						BlockedReason:        reason,
						AssigneeMembershipID: assignee,
					},
				})
			} else if cur.Status == models.AssignmentStatusDone {
				status = models.AssignmentStatusDone
				doneSteps++
			} else if cur.Status != models.AssignmentStatusBlocked || cur.BlockedReason != reason {
				plan.Updates = append(plan.Updates, AssignmentUpdate{
					AssignmentID: cur.ID,
					Fields: map[string]interface{}{
						"status":         models.AssignmentStatusBlocked,
						"blocked_reason": reason,
					},
				})
			}

		case cur == nil:
			dueAt := ComputeDue(enrollment, step, window)
			create := AssignmentCreate{
				Assignment: models.SequenceAssignment{
					OrgID:                enrollment.OrgID,
					EnrollmentID:         enrollment.ID,
					StepID:               step.ID,
					Status:               models.AssignmentStatusOpen,
					DueAt:                dueAt,
					AssigneeMembershipID: assignee,
				},
			}
			if assignee != nil {
				create.Notify = append(create.Notify, NotificationDraft{
					StepID:    step.ID,
					EventType: models.NotificationAssignmentCreated,
					MemberID:  *assignee,
					DueAt:     dueAt,
				})
			}
			draft, overdueAt := dueCheck(now, loc, step.ID, dueAt, nil, assignee, nil)
			create.Assignment.OverdueAt = overdueAt
			if draft != nil {
				create.Notify = append(create.Notify, *draft)
			}
			plan.Creates = append(plan.Creates, create)

		case cur.Status == models.AssignmentStatusDone:
			status = models.AssignmentStatusDone
			doneSteps++

		default:
			dueAt := ComputeDue(enrollment, step, window)
			fields := map[string]interface{}{}

			effStatus := cur.Status
			if cur.Status == models.AssignmentStatusBlocked {
				fields["status"] = models.AssignmentStatusOpen
				fields["blocked_reason"] = ""
				effStatus = models.AssignmentStatusOpen
			}
			if !timePtrEqual(cur.DueAt, dueAt) {
				fields["due_at"] = dueAt
			}
			if !uintPtrEqual(cur.AssigneeMembershipID, assignee) {
				fields["assignee_membership_id"] = assignee
			}
			if cur.Status == models.AssignmentStatusSnoozed && cur.SnoozedUntil != nil && !cur.SnoozedUntil.After(now) {
				fields["status"] = models.AssignmentStatusOpen
				fields["snoozed_until"] = nil
				effStatus = models.AssignmentStatusOpen
			}
			effOverdue := cur.OverdueAt
			if cur.OverdueAt != nil && dueAt != nil && dueAt.After(now) {
				// Due date moved into the future: un-mark overdue
				fields["overdue_at"] = nil
				effOverdue = nil
			}

			// Drafts go to the resolved assignee, which is also what the
			// assignee patch above persists
			draft, overdueAt := dueCheck(now, loc, step.ID, dueAt, effOverdue, assignee, func(key string) bool {
				return seen[DedupeRef{AssignmentID: cur.ID, Key: key}]
			})
			if overdueAt != nil {
				fields["overdue_at"] = overdueAt
			}
			if draft != nil {
				draft.AssignmentID = cur.ID
				plan.Notifications = append(plan.Notifications, *draft)
			}

			if len(fields) > 0 {
				plan.Updates = append(plan.Updates, AssignmentUpdate{AssignmentID: cur.ID, Fields: fields})
			}
			status = effStatus
		}

		gateActive = NextGate(gateActive, step, status)
	}

	if activeSteps > 0 && doneSteps == activeSteps && enrollment.Status != models.EnrollmentStatusCompleted {
		plan.CompleteEnrollment = true
	}
	return plan
}

// dueCheck implements the overdue / due-today logic shared by created and
// existing assignments. It returns the draft to emit (nil for none) and,
// for a newly overdue assignment, the overdue_at value to persist. The
// flag is persisted even without an assignee; only the notification needs
// someone to address. The overdue event fires once because a non-null
// overdue_at guards re-emission; due_today is deduplicated by the local
// calendar day.
func dueCheck(
	now time.Time,
	loc *time.Location,
	stepID uint,
	dueAt *time.Time,
	overdueAt *time.Time,
	assignee *uint,
	alreadySeen func(key string) bool,
) (*NotificationDraft, *time.Time) {
	if dueAt == nil {
		return nil, nil
	}
	if !dueAt.After(now) {
		if overdueAt != nil {
			return nil, nil
		}
		ts := now
		if assignee == nil {
			return nil, &ts
		}
		return &NotificationDraft{
			StepID:    stepID,
			EventType: models.NotificationOverdue,
			MemberID:  *assignee,
			DueAt:     dueAt,
		}, &ts
	}
	if assignee == nil {
		return nil, nil
	}
	if sameLocalDay(*dueAt, now, loc) {
		key := now.In(loc).Format("2006-01-02")
		if alreadySeen != nil && alreadySeen(key) {
			return nil, nil
		}
		return &NotificationDraft{
			StepID:    stepID,
			EventType: models.NotificationDueToday,
			MemberID:  *assignee,
			DedupeKey: key,
			DueAt:     dueAt,
		}, nil
	}
	return nil, nil
}

// resolveAssignee mirrors the resolution order the product defined: custom
// mode takes the step's configured membership before falling back to the
// enrollment creator, while owner/org modes prefer the enrollment creator
// over the step's configured membership.
func resolveAssignee(step models.SequenceStep, enrollment models.SequenceEnrollment) *uint {
	if step.AssigneeMode == models.AssigneeModeCustom {
		if step.AssigneeMembershipID != nil {
			return step.AssigneeMembershipID
		}
		if enrollment.CreatedByMembershipID != 0 {
			id := enrollment.CreatedByMembershipID
			return &id
		}
		return nil
	}
	if enrollment.CreatedByMembershipID != 0 {
		id := enrollment.CreatedByMembershipID
		return &id
	}
	return step.AssigneeMembershipID
}

func sameLocalDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
