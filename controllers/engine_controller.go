package controller

import (
	"context"
	"errors"

	"taskforge/engine"
	"taskforge/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// EngineRunner is what the trigger endpoint needs from the engine. The
// production value is the lock-guarded runner shared with the scheduler.
type EngineRunner interface {
	Run(ctx context.Context, input engine.RunInput) (*engine.Stats, error)
}

type EngineController struct {
	Runner EngineRunner
	Logger *logrus.Logger
}

func NewEngineController(runner EngineRunner, logger *logrus.Logger) *EngineController {
	return &EngineController{
		Runner: runner,
		Logger: logger,
	}
}

// RunEngine triggers one reconciliation run. All fields are optional;
// an empty body reconciles every active enrollment.
func (ec *EngineController) RunEngine(c *fiber.Ctx) error {
	var input engine.RunInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	stats, err := ec.Runner.Run(c.Context(), input)
	if err != nil {
		if errors.Is(err, engine.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Engine run already in progress",
			})
		}
		ec.Logger.WithError(err).Error("Engine run failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run engine",
		})
	}

	return c.JSON(fiber.Map{
		"ok":    true,
		"stats": stats,
	})
}
