package controller

import (
	"time"

	"taskforge/models"
	"taskforge/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AssignmentController handles the external transitions the engine
// reconciles against: marking work done, snoozing, reopening.
type AssignmentController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewAssignmentController(db *gorm.DB, logger *logrus.Logger) *AssignmentController {
	return &AssignmentController{
		DB:     db,
		Logger: logger,
	}
}

// CompleteAssignment marks an assignment done. Done is terminal for the
// engine; it never reopens the row on its own.
func (ac *AssignmentController) CompleteAssignment(c *fiber.Ctx) error {
	assignment, err := ac.findAssignment(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Assignment not found", nil)
	}

	if assignment.Status == models.AssignmentStatusDone {
		return c.JSON(assignment)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":         models.AssignmentStatusDone,
		"done_at":        now,
		"snoozed_until":  nil,
		"blocked_reason": "",
	}
	if err := ac.DB.Model(assignment).Updates(updates).Error; err != nil {
		ac.Logger.WithError(err).Error("Failed to complete assignment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to complete assignment", nil)
	}

	return c.JSON(assignment)
}

// SnoozeAssignment defers an open assignment until the given instant
func (ac *AssignmentController) SnoozeAssignment(c *fiber.Ctx) error {
	assignment, err := ac.findAssignment(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Assignment not found", nil)
	}

	var input struct {
		SnoozedUntil time.Time `json:"snoozed_until" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if !input.SnoozedUntil.After(time.Now()) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "snoozed_until must be in the future", nil)
	}
	if assignment.Status == models.AssignmentStatusDone || assignment.Status == models.AssignmentStatusBlocked {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only open assignments can be snoozed", nil)
	}

	updates := map[string]interface{}{
		"status":        models.AssignmentStatusSnoozed,
		"snoozed_until": input.SnoozedUntil.UTC(),
	}
	if err := ac.DB.Model(assignment).Updates(updates).Error; err != nil {
		ac.Logger.WithError(err).Error("Failed to snooze assignment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to snooze assignment", nil)
	}

	return c.JSON(assignment)
}

// ReopenAssignment clears a done marker, e.g. when work was closed by
// mistake. The next engine run re-evaluates the step like any other.
func (ac *AssignmentController) ReopenAssignment(c *fiber.Ctx) error {
	assignment, err := ac.findAssignment(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Assignment not found", nil)
	}

	if assignment.Status != models.AssignmentStatusDone {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only done assignments can be reopened", nil)
	}

	updates := map[string]interface{}{
		"status":  models.AssignmentStatusOpen,
		"done_at": nil,
	}
	if err := ac.DB.Model(assignment).Updates(updates).Error; err != nil {
		ac.Logger.WithError(err).Error("Failed to reopen assignment")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reopen assignment", nil)
	}

	return c.JSON(assignment)
}

// ListAssignments returns the assignments of one enrollment
func (ac *AssignmentController) ListAssignments(c *fiber.Ctx) error {
	enrollmentID, err := utils.ParseUintParam(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid enrollment id", err)
	}

	var assignments []models.SequenceAssignment
	if err := ac.DB.Where("enrollment_id = ?", enrollmentID).Order("step_id ASC").Find(&assignments).Error; err != nil {
		ac.Logger.WithError(err).Error("Failed to list assignments")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list assignments", nil)
	}

	return c.JSON(fiber.Map{"assignments": assignments})
}

func (ac *AssignmentController) findAssignment(c *fiber.Ctx) (*models.SequenceAssignment, error) {
	id, err := utils.ParseUintParam(c.Params("id"))
	if err != nil {
		return nil, err
	}
	var assignment models.SequenceAssignment
	if err := ac.DB.First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}
