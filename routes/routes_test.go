package routes

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"taskforge/config"
	"taskforge/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	config.AppConfig.ServiceSecret = "routes-test-secret"

	token, err := utils.GenerateServiceToken("tests", 0, time.Minute)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	SetupRoutes(app, nil, nil, logger)
	return app, token
}

func TestEngineRunRejectsWrongMethod(t *testing.T) {
	app, token := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/engine/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
}

func TestEngineRunRequiresAuth(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/engine/run", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	app, token := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/nope", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
