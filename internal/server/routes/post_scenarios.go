package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regioflex/regioflex/internal/server/middleware"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/scenario"
)

// CreateScenarioHandler validates uploaded raw tables and stores the
// resulting scenario dump.
func CreateScenarioHandler(c echo.Context) error {
	type createScenarioResponse struct {
		Message string `json:"message"`
		ID      string `json:"id,omitempty"`
		Name    string `json:"name,omitempty"`
	}

	var raw scenario.RawTables
	if err := c.Bind(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, createScenarioResponse{
			Message: "Invalid request body",
		})
	}

	sc, err := scenario.Load(raw)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, createScenarioResponse{
			Message: err.Error(),
		})
	}

	app := c.(*middleware.AppContext).App
	id, err := app.Store.Save(c.Request().Context(), sc)
	if err != nil {
		logger.Error("Failed to store scenario", "err", err)
		return c.JSON(http.StatusInternalServerError, createScenarioResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusCreated, createScenarioResponse{
		Message: "Scenario created",
		ID:      id,
		Name:    sc.Name(),
	})
}
