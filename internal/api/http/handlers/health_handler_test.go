package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyReportsFailingDependency(t *testing.T) {
	app := fiber.New()
	h := NewHealthHandler("auth-service", "test", map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "connection refused"}, body.Dependencies)
}

func TestReadyWithHealthyDependencies(t *testing.T) {
	app := fiber.New()
	h := NewHealthHandler("auth-service", "test", map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
	})
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
