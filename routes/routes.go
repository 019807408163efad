package routes

import (
	controller "taskforge/controllers"
	"taskforge/engine"
	"taskforge/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, runner *engine.LockedRunner, appLogger *logrus.Logger) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	engineController := controller.NewEngineController(runner, appLogger)
	sequenceController := controller.NewSequenceController(db, appLogger)
	enrollmentController := controller.NewEnrollmentController(db, appLogger)
	assignmentController := controller.NewAssignmentController(db, appLogger)
	notificationController := controller.NewNotificationController(db, appLogger)

	// Every endpoint acts with service-level credentials
	api := app.Group("/api/v1", middleware.ServiceProtected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Engine trigger
	api.Post("/engine/run", engineController.RunEngine)

	// Sequence configuration
	sequence := api.Group("/sequences")
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetSequences)
	sequence.Get("/:id", sequenceController.GetSequence)
	sequence.Post("/:id/versions", sequenceController.PublishVersion)

	// Enrollment lifecycle
	enrollment := api.Group("/enrollments")
	enrollment.Post("/", enrollmentController.CreateEnrollment)
	enrollment.Post("/:id/pause", enrollmentController.PauseEnrollment)
	enrollment.Post("/:id/resume", enrollmentController.ResumeEnrollment)
	enrollment.Post("/:id/terminate", enrollmentController.TerminateEnrollment)
	enrollment.Get("/:id/assignments", assignmentController.ListAssignments)

	// Assignment transitions written by the task UI
	assignment := api.Group("/assignments")
	assignment.Post("/:id/done", assignmentController.CompleteAssignment)
	assignment.Post("/:id/snooze", assignmentController.SnoozeAssignment)
	assignment.Post("/:id/reopen", assignmentController.ReopenAssignment)

	// Notification feed for the delivery system
	notification := api.Group("/notifications")
	notification.Get("/", notificationController.ListNotifications)
	notification.Post("/consume", notificationController.ConsumeNotifications)

	// No catch-all handler: fiber answers 405 itself when a known path is
	// hit with the wrong method, and 404 otherwise
}
