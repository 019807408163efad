package engine

import (
	"context"
	"fmt"
	"time"

	"taskforge/models"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine advances every loaded active enrollment by one reconciliation
// pass. It holds no state between runs; everything it needs is re-read
// from the store each time.
type Engine struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func New(db *gorm.DB, logger *logrus.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// RunInput bounds one engine run. Zero values mean "all active enrollments".
type RunInput struct {
	OrgID         uint   `json:"org_id"`
	EnrollmentIDs []uint `json:"enrollment_ids"`
	Limit         int    `json:"limit" validate:"omitempty,min=1,max=10000"`
}

// Stats aggregates one run's outcome
type Stats struct {
	ProcessedEnrollments int `json:"processed_enrollments"`
	AssignmentsCreated   int `json:"assignments_created"`
	AssignmentsUpdated   int `json:"assignments_updated"`
	NotificationsCreated int `json:"notifications_created"`
	EnrollmentsCompleted int `json:"enrollments_completed"`
	SkippedEnrollments   int `json:"skipped_enrollments"`
}

// Run loads the active enrollments in scope, reconciles each one and
// returns aggregate counters. Load failures abort the whole run; row-level
// mutation failures are logged and skipped, to be retried by the next run.
func (e *Engine) Run(ctx context.Context, input RunInput) (*Stats, error) {
	now := time.Now().UTC()
	stats := &Stats{}

	q := e.db.WithContext(ctx).Where("status = ?", models.EnrollmentStatusActive)
	if input.OrgID != 0 {
		q = q.Where("org_id = ?", input.OrgID)
	}
	if len(input.EnrollmentIDs) > 0 {
		q = q.Where("id IN ?", input.EnrollmentIDs)
	}
	if input.Limit > 0 {
		q = q.Limit(input.Limit)
	}

	var enrollments []models.SequenceEnrollment
	if err := q.Order("id ASC").Find(&enrollments).Error; err != nil {
		e.reportRunFailure(err)
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return stats, nil
	}

	enrollmentIDs := make([]uint, 0, len(enrollments))
	versionIDSet := map[uint]bool{}
	for _, enr := range enrollments {
		enrollmentIDs = append(enrollmentIDs, enr.ID)
		versionIDSet[enr.VersionID] = true
	}
	versionIDs := make([]uint, 0, len(versionIDSet))
	for id := range versionIDSet {
		versionIDs = append(versionIDs, id)
	}

	var versions []models.SequenceVersion
	if err := e.db.WithContext(ctx).Where("id IN ?", versionIDs).Find(&versions).Error; err != nil {
		e.reportRunFailure(err)
		return nil, fmt.Errorf("loading versions: %w", err)
	}
	versionByID := make(map[uint]models.SequenceVersion, len(versions))
	for _, v := range versions {
		versionByID[v.ID] = v
	}

	// Steps are loaded regardless of is_active so dependency lookups can
	// see inactive prerequisites; only active steps are walked.
	var steps []models.SequenceStep
	if err := e.db.WithContext(ctx).
		Where("version_id IN ?", versionIDs).
		Order("order_index ASC, id ASC").
		Find(&steps).Error; err != nil {
		e.reportRunFailure(err)
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	stepsByVersion := map[uint][]models.SequenceStep{}
	for _, s := range steps {
		stepsByVersion[s.VersionID] = append(stepsByVersion[s.VersionID], s)
	}

	var assignments []models.SequenceAssignment
	if err := e.db.WithContext(ctx).Where("enrollment_id IN ?", enrollmentIDs).Find(&assignments).Error; err != nil {
		e.reportRunFailure(err)
		return nil, fmt.Errorf("loading assignments: %w", err)
	}
	assignmentsByEnrollment := map[uint]map[uint]*models.SequenceAssignment{}
	for i := range assignments {
		a := &assignments[i]
		byStep := assignmentsByEnrollment[a.EnrollmentID]
		if byStep == nil {
			byStep = map[uint]*models.SequenceAssignment{}
			assignmentsByEnrollment[a.EnrollmentID] = byStep
		}
		byStep[a.StepID] = a
	}

	seen, err := e.loadRecentDedupeKeys(ctx, enrollmentIDs, now)
	if err != nil {
		e.reportRunFailure(err)
		return nil, fmt.Errorf("loading notification dedupe keys: %w", err)
	}

	for _, enr := range enrollments {
		version, ok := versionByID[enr.VersionID]
		if !ok {
			e.logger.WithFields(logrus.Fields{
				"enrollment_id": enr.ID,
				"version_id":    enr.VersionID,
			}).Warn("Enrollment references a missing version, skipping")
			stats.SkippedEnrollments++
			continue
		}

		plan := Reconcile(now, enr, version, stepsByVersion[version.ID], assignmentsByEnrollment[enr.ID], seen)
		e.apply(ctx, now, enr, plan, stats)
		stats.ProcessedEnrollments++
	}

	e.logger.WithFields(logrus.Fields{
		"processed": stats.ProcessedEnrollments,
		"created":   stats.AssignmentsCreated,
		"updated":   stats.AssignmentsUpdated,
		"notified":  stats.NotificationsCreated,
		"completed": stats.EnrollmentsCompleted,
	}).Info("Engine run finished")
	return stats, nil
}

// loadRecentDedupeKeys collects (assignment, day) pairs of recently emitted
// due_today events. 48 hours comfortably covers "today" in every zone a
// version can be configured with.
func (e *Engine) loadRecentDedupeKeys(ctx context.Context, enrollmentIDs []uint, now time.Time) (map[DedupeRef]bool, error) {
	var rows []models.SequenceNotification
	err := e.db.WithContext(ctx).
		Select("assignment_id", "dedupe_key").
		Where("enrollment_id IN ? AND event_type = ? AND created_at >= ?",
			enrollmentIDs, models.NotificationDueToday, now.Add(-48*time.Hour)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	seen := make(map[DedupeRef]bool, len(rows))
	for _, r := range rows {
		if r.AssignmentID != nil && r.DedupeKey != nil {
			seen[DedupeRef{AssignmentID: *r.AssignmentID, Key: *r.DedupeKey}] = true
		}
	}
	return seen, nil
}

// apply executes one enrollment's plan. Each mutation stands alone: a
// failing row is logged and skipped, and the next run re-derives it from
// whatever state actually persisted.
func (e *Engine) apply(ctx context.Context, now time.Time, enr models.SequenceEnrollment, plan Plan, stats *Stats) {
	for _, cr := range plan.Creates {
		row := cr.Assignment
		res := e.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			e.rowError(enr.ID, "creating assignment", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			// A concurrent run inserted the pair first; its notifications
			// belong to that run
			continue
		}
		stats.AssignmentsCreated++
		for _, draft := range cr.Notify {
			draft.AssignmentID = row.ID
			e.insertNotification(ctx, enr, draft, stats)
		}
	}

	for _, up := range plan.Updates {
		err := e.db.WithContext(ctx).
			Model(&models.SequenceAssignment{}).
			Where("id = ?", up.AssignmentID).
			Updates(up.Fields).Error
		if err != nil {
			e.rowError(enr.ID, "updating assignment", err)
			continue
		}
		stats.AssignmentsUpdated++
	}

	for _, draft := range plan.Notifications {
		e.insertNotification(ctx, enr, draft, stats)
	}

	if plan.CompleteEnrollment {
		res := e.db.WithContext(ctx).
			Model(&models.SequenceEnrollment{}).
			Where("id = ? AND status = ?", enr.ID, models.EnrollmentStatusActive).
			Updates(map[string]interface{}{
				"status":       models.EnrollmentStatusCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			e.rowError(enr.ID, "completing enrollment", res.Error)
		} else if res.RowsAffected > 0 {
			stats.EnrollmentsCompleted++
		}
	}
}

func (e *Engine) insertNotification(ctx context.Context, enr models.SequenceEnrollment, draft NotificationDraft, stats *Stats) {
	row := models.SequenceNotification{
		OrgID:        enr.OrgID,
		SequenceID:   enr.SequenceID,
		EnrollmentID: enr.ID,
		MemberID:     draft.MemberID,
		EventType:    draft.EventType,
		Payload: models.NotificationPayload{
			EventID: uuid.New().String(),
			StepID:  draft.StepID,
			DueAt:   draft.DueAt,
		},
	}
	if draft.AssignmentID != 0 {
		id := draft.AssignmentID
		row.AssignmentID = &id
	}
	if draft.DedupeKey != "" {
		key := draft.DedupeKey
		row.DedupeKey = &key
	}
	if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
		e.rowError(enr.ID, "creating notification", err)
		return
	}
	stats.NotificationsCreated++
}

func (e *Engine) rowError(enrollmentID uint, op string, err error) {
	e.logger.WithError(err).WithField("enrollment_id", enrollmentID).Errorf("Engine: %s failed", op)
}

func (e *Engine) reportRunFailure(err error) {
	e.logger.WithError(err).Error("Engine: run aborted during load phase")
	sentry.CaptureException(err)
}
