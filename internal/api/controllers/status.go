package controllers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/dltool/internal/app"
)

type StatusController struct {
	App *app.Context
}

// Handle reports the progress of the current run
func (ctrl *StatusController) Handle(c *echo.Context) error {
	if ctrl.App.Progress == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no run in progress"})
	}
	return c.JSON(http.StatusOK, ctrl.App.Progress.Snapshot())
}
