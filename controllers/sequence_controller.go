package controller

import (
	"taskforge/engine"
	"taskforge/models"
	"taskforge/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SequenceController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewSequenceController(db *gorm.DB, logger *logrus.Logger) *SequenceController {
	return &SequenceController{
		DB:     db,
		Logger: logger,
	}
}

type stepInput struct {
	OrderIndex           int    `json:"order_index"`
	Type                 string `json:"type" validate:"omitempty,oneof=general_task call_task"`
	AssigneeMode         string `json:"assignee_mode" validate:"omitempty,oneof=owner org custom"`
	AssigneeMembershipID *uint  `json:"assignee_membership_id"`
	DueOffsetDays        int    `json:"due_offset_days"`
	DueOffsetHours       int    `json:"due_offset_hours"`
	DependsOn            []int  `json:"depends_on"` // indices into this request's steps list
	IsActive             *bool  `json:"is_active"`
	PauseUntilDone       bool   `json:"pause_until_done"`
}

// CreateSequence creates a bare sequence definition
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input struct {
		OrgID      uint   `json:"org_id" validate:"required"`
		Name       string `json:"name" validate:"required,max=200"`
		TargetKind string `json:"target_kind" validate:"omitempty,oneof=contact member"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	sequence := models.Sequence{
		OrgID:      input.OrgID,
		Name:       input.Name,
		Status:     models.SequenceStatusDraft,
		TargetKind: input.TargetKind,
	}
	if sequence.TargetKind == "" {
		sequence.TargetKind = models.TargetKindContact
	}

	if err := sc.DB.Create(&sequence).Error; err != nil {
		sc.Logger.WithError(err).Error("Failed to create sequence")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sequence", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(sequence)
}

// PublishVersion creates a new immutable version snapshot with its steps
// and applies the publish strategy to enrollments of older versions.
// Dependency cycles are rejected here, at configuration time, so the
// engine never has to re-validate the graph.
func (sc *SequenceController) PublishVersion(c *fiber.Ctx) error {
	sequenceID, err := utils.ParseUintParam(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence id", err)
	}

	var sequence models.Sequence
	if err := sc.DB.First(&sequence, sequenceID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var input struct {
		Timezone        string      `json:"timezone"`
		WorkDays        []int       `json:"work_days" validate:"omitempty,dive,min=1,max=7"`
		WorkStartTime   string      `json:"work_start_time"`
		WorkEndTime     string      `json:"work_end_time"`
		ClampEnabled    *bool       `json:"clamp_enabled"`
		PublishStrategy string      `json:"publish_strategy" validate:"omitempty,oneof=terminate migrate"`
		Steps           []stepInput `json:"steps" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := validateStepGraph(input.Steps); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid step dependencies", err)
	}

	var latest models.SequenceVersion
	versionNumber := 1
	if err := sc.DB.Where("sequence_id = ?", sequence.ID).
		Order("version_number DESC").
		First(&latest).Error; err == nil {
		versionNumber = latest.VersionNumber + 1
	}

	version := models.SequenceVersion{
		SequenceID:      sequence.ID,
		VersionNumber:   versionNumber,
		Timezone:        input.Timezone,
		WorkDays:        input.WorkDays,
		WorkStartTime:   input.WorkStartTime,
		WorkEndTime:     input.WorkEndTime,
		ClampEnabled:    true,
		PublishStrategy: models.PublishStrategyTerminate,
	}
	if version.Timezone == "" {
		version.Timezone = "UTC"
	}
	if version.WorkStartTime == "" {
		version.WorkStartTime = "09:00"
	}
	if version.WorkEndTime == "" {
		version.WorkEndTime = "18:00"
	}
	if input.ClampEnabled != nil {
		version.ClampEnabled = *input.ClampEnabled
	}
	if input.PublishStrategy != "" {
		version.PublishStrategy = input.PublishStrategy
	}
	if err := engine.ValidateWindow(version.WorkStartTime, version.WorkEndTime); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid work window", err)
	}

	tx := sc.DB.Begin()

	if err := tx.Create(&version).Error; err != nil {
		tx.Rollback()
		sc.Logger.WithError(err).Error("Failed to create version")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create version", nil)
	}

	// First pass inserts the steps; the second maps the request's index
	// references onto the generated step ids
	stepIDs := make([]uint, len(input.Steps))
	for i, in := range input.Steps {
		step := models.SequenceStep{
			VersionID:            version.ID,
			OrderIndex:           in.OrderIndex,
			Type:                 in.Type,
			AssigneeMode:         in.AssigneeMode,
			AssigneeMembershipID: in.AssigneeMembershipID,
			DueOffsetDays:        in.DueOffsetDays,
			DueOffsetHours:       in.DueOffsetHours,
			IsActive:             true,
			PauseUntilDone:       in.PauseUntilDone,
		}
		if step.Type == "" {
			step.Type = models.StepTypeGeneralTask
		}
		if step.AssigneeMode == "" {
			step.AssigneeMode = models.AssigneeModeOwner
		}
		if in.IsActive != nil {
			step.IsActive = *in.IsActive
		}
		if err := tx.Create(&step).Error; err != nil {
			tx.Rollback()
			sc.Logger.WithError(err).Error("Failed to create step")
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create step", nil)
		}
		stepIDs[i] = step.ID
	}

	for i, in := range input.Steps {
		if len(in.DependsOn) == 0 {
			continue
		}
		dependsOn := make([]uint, 0, len(in.DependsOn))
		for _, idx := range in.DependsOn {
			dependsOn = append(dependsOn, stepIDs[idx])
		}
		if err := tx.Model(&models.SequenceStep{}).
			Where("id = ?", stepIDs[i]).
			Update("depends_on", dependsOn).Error; err != nil {
			tx.Rollback()
			sc.Logger.WithError(err).Error("Failed to link step dependencies")
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create step", nil)
		}
	}

	// Apply the publish strategy to enrollments still on older versions
	if versionNumber > 1 {
		switch version.PublishStrategy {
		case models.PublishStrategyMigrate:
			err = tx.Model(&models.SequenceEnrollment{}).
				Where("sequence_id = ? AND status = ? AND version_id <> ?",
					sequence.ID, models.EnrollmentStatusActive, version.ID).
				Update("version_id", version.ID).Error
		default:
			err = tx.Model(&models.SequenceEnrollment{}).
				Where("sequence_id = ? AND status = ? AND version_id <> ?",
					sequence.ID, models.EnrollmentStatusActive, version.ID).
				Update("status", models.EnrollmentStatusTerminated).Error
		}
		if err != nil {
			tx.Rollback()
			sc.Logger.WithError(err).Error("Failed to apply publish strategy")
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to publish version", nil)
		}
	}

	if err := tx.Commit().Error; err != nil {
		sc.Logger.WithError(err).Error("Failed to commit version")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to publish version", nil)
	}

	if err := sc.DB.Preload("Steps").First(&version, version.ID).Error; err == nil {
		return c.Status(fiber.StatusCreated).JSON(version)
	}
	return c.Status(fiber.StatusCreated).JSON(version)
}

// GetSequence returns one sequence with its versions and steps
func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence id", err)
	}

	var sequence models.Sequence
	if err := sc.DB.Preload("Versions.Steps").First(&sequence, id).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	return c.JSON(sequence)
}

// GetSequences lists an organization's sequences
func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	orgID := c.QueryInt("org_id")
	if orgID <= 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "org_id query parameter is required", nil)
	}

	var sequences []models.Sequence
	if err := sc.DB.Where("org_id = ?", orgID).Order("id ASC").Find(&sequences).Error; err != nil {
		sc.Logger.WithError(err).Error("Failed to list sequences")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list sequences", nil)
	}

	return c.JSON(fiber.Map{"sequences": sequences})
}

// validateStepGraph rejects out-of-range references and dependency cycles
func validateStepGraph(steps []stepInput) error {
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if dep < 0 || dep >= len(steps) {
				return fiber.NewError(fiber.StatusBadRequest, "dependency index out of range")
			}
		}
	}

	// Colors: 0 unvisited, 1 in progress, 2 done
	colors := make([]int, len(steps))
	var visit func(i int) bool
	visit = func(i int) bool {
		if colors[i] == 1 {
			return false
		}
		if colors[i] == 2 {
			return true
		}
		colors[i] = 1
		for _, dep := range steps[i].DependsOn {
			if !visit(dep) {
				return false
			}
		}
		colors[i] = 2
		return true
	}
	for i := range steps {
		if !visit(i) {
			return fiber.NewError(fiber.StatusBadRequest, "dependency cycle detected")
		}
	}
	return nil
}
