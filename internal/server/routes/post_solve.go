package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regioflex/regioflex/internal/queue"
	"github.com/regioflex/regioflex/internal/server/middleware"
	"github.com/regioflex/regioflex/pkg/logger"
)

// SolveScenarioHandler enqueues a solve job for a stored scenario. The
// solve itself runs on a worker; completion is announced on the pubsub
// exchange.
func SolveScenarioHandler(c echo.Context) error {
	type solveScenarioResponse struct {
		Message string `json:"message"`
		ID      string `json:"id,omitempty"`
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, solveScenarioResponse{
			Message: "Missing scenario id",
		})
	}

	app := c.(*middleware.AppContext).App

	// Fail fast on unknown ids instead of queueing a job the worker will
	// reject ten retries later.
	if _, err := app.Store.Load(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, solveScenarioResponse{
			Message: "Scenario not found",
		})
	}

	if err := queue.PublishSolveJob(app.Queue, id); err != nil {
		logger.Error("Failed to enqueue solve job", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, solveScenarioResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, solveScenarioResponse{
		Message: "Solve job enqueued",
		ID:      id,
	})
}
