package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/regioflex/regioflex/internal/server/middleware"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/store"
)

// GetScenariosHandler lists stored scenario dumps. Query parameters filter
// by metadata, e.g. ?year=2030&name=base.
func GetScenariosHandler(c echo.Context) error {
	type getScenariosResponse struct {
		Message   string             `json:"message"`
		Scenarios []store.DumpRecord `json:"scenarios"`
	}

	filter := map[string]string{}
	for key, values := range c.QueryParams() {
		if len(values) > 0 {
			filter[key] = values[0]
		}
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	var records []store.DumpRecord
	var err error
	if len(filter) == 0 {
		records, err = app.Store.List(ctx)
	} else {
		records, err = app.Store.Search(ctx, filter)
	}
	if err != nil {
		logger.Error("Failed to list scenarios", "err", err)
		return c.JSON(http.StatusInternalServerError, getScenariosResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getScenariosResponse{
		Message:   "OK",
		Scenarios: records,
	})
}
