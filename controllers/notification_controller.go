package controller

import (
	"time"

	"taskforge/models"
	"taskforge/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationController serves the delivery system that polls the
// append-only notification log.
type NotificationController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewNotificationController(db *gorm.DB, logger *logrus.Logger) *NotificationController {
	return &NotificationController{
		DB:     db,
		Logger: logger,
	}
}

// ListNotifications returns unconsumed notifications, oldest first,
// optionally bounded by org and a since-id cursor
func (nc *NotificationController) ListNotifications(c *fiber.Ctx) error {
	q := nc.DB.Where("consumed_at IS NULL")

	if orgID := c.QueryInt("org_id"); orgID > 0 {
		q = q.Where("org_id = ?", orgID)
	}
	if sinceID := c.QueryInt("since_id"); sinceID > 0 {
		q = q.Where("id > ?", sinceID)
	}
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	var notifications []models.SequenceNotification
	if err := q.Order("id ASC").Limit(limit).Find(&notifications).Error; err != nil {
		nc.Logger.WithError(err).Error("Failed to list notifications")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list notifications", nil)
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

// ConsumeNotifications marks a batch of notifications as handed off
func (nc *NotificationController) ConsumeNotifications(c *fiber.Ctx) error {
	var input struct {
		IDs []uint `json:"ids" validate:"required,min=1,max=1000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	res := nc.DB.Model(&models.SequenceNotification{}).
		Where("id IN ? AND consumed_at IS NULL", input.IDs).
		Update("consumed_at", time.Now().UTC())
	if res.Error != nil {
		nc.Logger.WithError(res.Error).Error("Failed to consume notifications")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to consume notifications", nil)
	}

	return c.JSON(fiber.Map{"consumed": res.RowsAffected})
}
