package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regioflex/regioflex/internal/server/middleware"
	"github.com/regioflex/regioflex/pkg/graph"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/postprocessing"
)

// GetScenarioResultsHandler post-processes the solved results of a stored
// scenario: bus balances, node totals, key values, shortage and cycle
// usage.
func GetScenarioResultsHandler(c echo.Context) error {
	type getResultsResponse struct {
		Message    string                        `json:"message"`
		Solver     string                        `json:"solver,omitempty"`
		Balances   []postprocessing.BusBalance   `json:"balances,omitempty"`
		Totals     []postprocessing.NodeTotal    `json:"totals,omitempty"`
		KeyValues  []postprocessing.BusKeyValues `json:"key_values,omitempty"`
		UsedCycles []postprocessing.Cycle        `json:"used_cycles,omitempty"`
		Suspicious []postprocessing.Cycle        `json:"suspicious_cycles,omitempty"`
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, getResultsResponse{
			Message: "Missing scenario id",
		})
	}

	app := c.(*middleware.AppContext).App
	sc, err := app.Store.Load(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, getResultsResponse{
			Message: "Scenario not found",
		})
	}
	if !sc.HasResults() {
		return c.JSON(http.StatusConflict, getResultsResponse{
			Message: "Scenario has no results yet",
		})
	}

	fg, err := graph.Build(sc)
	if err != nil {
		logger.Error("Failed to build flow graph", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, getResultsResponse{
			Message: "Internal server error",
		})
	}

	report := postprocessing.DetectCycles(fg)
	return c.JSON(http.StatusOK, getResultsResponse{
		Message:    "OK",
		Solver:     sc.Results.Solver,
		Balances:   postprocessing.BusBalances(fg, sc.Results),
		Totals:     postprocessing.NodeTotals(fg, sc.Results),
		KeyValues:  postprocessing.KeyValues(fg, sc.Results),
		UsedCycles: report.UsedCycles(sc.Results),
		Suspicious: report.SuspiciousCycles(sc.Results),
	})
}
