package server

import (
	"github.com/regioflex/regioflex/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Scenario registry routes
	apiRoutes.GET("/scenarios", routes.GetScenariosHandler)
	apiRoutes.POST("/scenarios", routes.CreateScenarioHandler)
	apiRoutes.DELETE("/scenarios/:id", routes.DeleteScenarioHandler)

	// Solve and analysis routes
	apiRoutes.POST("/scenarios/:id/solve", routes.SolveScenarioHandler)
	apiRoutes.GET("/scenarios/:id/graph", routes.GetScenarioGraphHandler)
	apiRoutes.GET("/scenarios/:id/results", routes.GetScenarioResultsHandler)
}
