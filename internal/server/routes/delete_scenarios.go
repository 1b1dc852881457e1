package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regioflex/regioflex/internal/server/middleware"
	"github.com/regioflex/regioflex/pkg/logger"
)

// DeleteScenarioHandler removes a scenario dump from the registry.
func DeleteScenarioHandler(c echo.Context) error {
	type deleteScenarioResponse struct {
		Message string `json:"message"`
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, deleteScenarioResponse{
			Message: "Missing scenario id",
		})
	}

	app := c.(*middleware.AppContext).App
	if err := app.Store.Delete(c.Request().Context(), id); err != nil {
		logger.Error("Failed to delete scenario", "id", id, "err", err)
		return c.JSON(http.StatusNotFound, deleteScenarioResponse{
			Message: "Scenario not found",
		})
	}

	return c.JSON(http.StatusOK, deleteScenarioResponse{
		Message: "Scenario deleted",
	})
}
