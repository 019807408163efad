package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pointer returns a pointer to v
func Pointer[T any](v T) *T {
	return &v
}

// ParseUintParam parses a route parameter into a uint id
func ParseUintParam(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

// ErrorResponse creates a standardized error response
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}
