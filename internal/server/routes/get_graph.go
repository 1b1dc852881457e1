package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regioflex/regioflex/internal/server/middleware"
	"github.com/regioflex/regioflex/pkg/graph"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/postprocessing"
)

// GetScenarioGraphHandler builds the flow graph of a stored scenario and
// returns it as edge triples together with the cycle report.
func GetScenarioGraphHandler(c echo.Context) error {
	type getGraphResponse struct {
		Message string                      `json:"message"`
		Edges   []graph.Triple              `json:"edges,omitempty"`
		Cycles  *postprocessing.CycleReport `json:"cycles,omitempty"`
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, getGraphResponse{
			Message: "Missing scenario id",
		})
	}

	app := c.(*middleware.AppContext).App
	sc, err := app.Store.Load(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, getGraphResponse{
			Message: "Scenario not found",
		})
	}

	fg, err := graph.Build(sc)
	if err != nil {
		logger.Error("Failed to build flow graph", "id", id, "err", err)
		return c.JSON(http.StatusUnprocessableEntity, getGraphResponse{
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, getGraphResponse{
		Message: "OK",
		Edges:   fg.Triples(),
		Cycles:  postprocessing.DetectCycles(fg),
	})
}
