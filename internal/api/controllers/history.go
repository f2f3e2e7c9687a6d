package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/dltool/internal/app"
	"github.com/datallboy/dltool/internal/store"
)

type HistoryController struct {
	App *app.Context
}

func (ctrl *HistoryController) List(c *echo.Context) error {
	if ctrl.App.Store == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "history is disabled"})
	}

	limit := 20
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive number"})
		}
		limit = n
	}

	runs, err := ctrl.App.Store.ListRuns(c.Request().Context(), limit)
	if err != nil {
		ctrl.App.Logger.Error("List runs: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not read history"})
	}
	if runs == nil {
		runs = []store.Run{}
	}
	return c.JSON(http.StatusOK, runs)
}

func (ctrl *HistoryController) Get(c *echo.Context) error {
	if ctrl.App.Store == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "history is disabled"})
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	run, err := ctrl.App.Store.GetRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
	}
	if err != nil {
		ctrl.App.Logger.Error("Get run %s: %v", id, err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not read history"})
	}

	detail := RunDetail{Run: *run}
	if detail.Outcomes, err = ctrl.App.Store.Outcomes(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not read outcomes"})
	}
	if detail.Missing, err = ctrl.App.Store.Missing(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not read missing names"})
	}

	return c.JSON(http.StatusOK, detail)
}
