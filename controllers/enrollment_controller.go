package controller

import (
	"time"

	"taskforge/models"
	"taskforge/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type EnrollmentController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewEnrollmentController(db *gorm.DB, logger *logrus.Logger) *EnrollmentController {
	return &EnrollmentController{
		DB:     db,
		Logger: logger,
	}
}

// CreateEnrollment enrolls one target into the current version of a sequence
func (ec *EnrollmentController) CreateEnrollment(c *fiber.Ctx) error {
	var input struct {
		OrgID                 uint   `json:"org_id" validate:"required"`
		SequenceID            uint   `json:"sequence_id" validate:"required"`
		TargetKind            string `json:"target_kind" validate:"required,oneof=contact member"`
		TargetID              uint   `json:"target_id" validate:"required"`
		CreatedByMembershipID uint   `json:"created_by_membership_id" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var sequence models.Sequence
	if err := ec.DB.Where("id = ? AND org_id = ?", input.SequenceID, input.OrgID).First(&sequence).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	// Latest version is the current one at enrollment time
	var version models.SequenceVersion
	if err := ec.DB.Where("sequence_id = ?", sequence.ID).
		Order("version_number DESC").
		First(&version).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sequence has no published version", nil)
	}

	// At most one active enrollment per (sequence, target)
	var existing models.SequenceEnrollment
	err := ec.DB.Where("sequence_id = ? AND target_kind = ? AND target_id = ? AND status = ?",
		sequence.ID, input.TargetKind, input.TargetID, models.EnrollmentStatusActive).
		First(&existing).Error
	if err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Target already has an active enrollment in this sequence", nil)
	}

	enrollment := models.SequenceEnrollment{
		OrgID:                 input.OrgID,
		SequenceID:            sequence.ID,
		VersionID:             version.ID,
		TargetKind:            input.TargetKind,
		TargetID:              input.TargetID,
		Status:                models.EnrollmentStatusActive,
		EnrolledAt:            time.Now().UTC(),
		CreatedByMembershipID: input.CreatedByMembershipID,
	}

	if err := ec.DB.Create(&enrollment).Error; err != nil {
		ec.Logger.WithError(err).Error("Failed to create enrollment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create enrollment", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

// PauseEnrollment suspends an active enrollment
func (ec *EnrollmentController) PauseEnrollment(c *fiber.Ctx) error {
	enrollment, err := ec.findEnrollment(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}

	if enrollment.Status != models.EnrollmentStatusActive {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only active enrollments can be paused", nil)
	}

	enrollment.Status = models.EnrollmentStatusPaused
	enrollment.PausedAt = utils.Pointer(time.Now().UTC())
	if err := ec.DB.Save(enrollment).Error; err != nil {
		ec.Logger.WithError(err).Error("Failed to pause enrollment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to pause enrollment", nil)
	}

	return c.JSON(enrollment)
}

// ResumeEnrollment reactivates a paused enrollment. The resume instant
// becomes the new anchor for due-date math.
func (ec *EnrollmentController) ResumeEnrollment(c *fiber.Ctx) error {
	enrollment, err := ec.findEnrollment(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}

	if enrollment.Status != models.EnrollmentStatusPaused {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only paused enrollments can be resumed", nil)
	}

	enrollment.Status = models.EnrollmentStatusActive
	enrollment.ResumedAt = utils.Pointer(time.Now().UTC())
	enrollment.PausedAt = nil
	if err := ec.DB.Save(enrollment).Error; err != nil {
		ec.Logger.WithError(err).Error("Failed to resume enrollment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resume enrollment", nil)
	}

	return c.JSON(enrollment)
}

// TerminateEnrollment ends an enrollment without completing it
func (ec *EnrollmentController) TerminateEnrollment(c *fiber.Ctx) error {
	enrollment, err := ec.findEnrollment(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}

	if enrollment.Status == models.EnrollmentStatusCompleted || enrollment.Status == models.EnrollmentStatusTerminated {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Enrollment already finished", nil)
	}

	enrollment.Status = models.EnrollmentStatusTerminated
	if err := ec.DB.Save(enrollment).Error; err != nil {
		ec.Logger.WithError(err).Error("Failed to terminate enrollment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to terminate enrollment", nil)
	}

	return c.JSON(enrollment)
}

func (ec *EnrollmentController) findEnrollment(c *fiber.Ctx) (*models.SequenceEnrollment, error) {
	id, err := utils.ParseUintParam(c.Params("id"))
	if err != nil {
		return nil, err
	}
	var enrollment models.SequenceEnrollment
	if err := ec.DB.First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}
