package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/webserver/middleware"
	"github.com/mdouchement/chestlink/internal/webserver/serializer"
	"github.com/mdouchement/chestlink/internal/webserver/weberror"
	"github.com/mdouchement/logger"
)

type view struct {
	logger  logger.Logger
	manager *manager.Manager
	records *record
}

func (h *view) Open(c echo.Context) error {
	c.Set("handler_method", "view.Open")

	r, err := h.records.load(c)
	if err != nil {
		return err
	}

	// Filter params
	var params openParams
	if err = c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	v, err := h.manager.OpenPage(middleware.CurrentActor(c), r, params.Page)
	if err != nil {
		return weberror.From(err)
	}

	// Render response
	return c.JSON(http.StatusCreated, serializer.View(v))
}

func (h *view) Show(c echo.Context) error {
	c.Set("handler_method", "view.Show")

	v, ok := h.manager.View(c.Param("handle"))
	if !ok {
		return weberror.From(manager.ErrUnknownView)
	}
	if !h.manager.CanView(middleware.CurrentActor(c), v.Record) {
		return weberror.From(manager.ErrAccessDenied)
	}

	return c.JSON(http.StatusOK, serializer.View(v))
}

func (h *view) Update(c echo.Context) error {
	c.Set("handler_method", "view.Update")

	// Filter params
	var params updateParams
	if err := c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	grid := make([]*model.ItemStack, len(params.Grid))
	for i, stack := range params.Grid {
		if stack == nil || stack.Amount <= 0 {
			continue
		}

		t, ok := model.ParseItemType(string(stack.Type))
		if !ok {
			return weberror.New(http.StatusBadRequest, "invalid item type "+string(stack.Type))
		}
		stack.Type = t
		grid[i] = stack
	}
	if params.Grid == nil {
		grid = nil
	}

	actor := middleware.CurrentActor(c)
	changed, err := h.manager.UpdateView(actor, c.Param("handle"), grid)
	if err != nil {
		return weberror.From(err)
	}

	v, ok := h.manager.View(c.Param("handle"))
	if !ok {
		return weberror.From(manager.ErrUnknownView)
	}

	// Render response
	return c.JSON(http.StatusOK, echo.Map{
		"changed": changed,
		"view":    serializer.View(v),
	})
}

func (h *view) ChangePage(c echo.Context) error {
	c.Set("handler_method", "view.ChangePage")

	// Filter params
	var params pageParams
	if err := c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	v, err := h.manager.ChangePage(middleware.CurrentActor(c), c.Param("handle"), params.Delta)
	if err != nil {
		return weberror.From(err)
	}

	// Render response
	return c.JSON(http.StatusOK, serializer.View(v))
}

func (h *view) Close(c echo.Context) error {
	c.Set("handler_method", "view.Close")

	v, ok := h.manager.View(c.Param("handle"))
	if !ok {
		return weberror.From(manager.ErrUnknownView)
	}
	if !h.manager.CanView(middleware.CurrentActor(c), v.Record) {
		return weberror.From(manager.ErrAccessDenied)
	}

	h.manager.CloseView(c.Param("handle"))
	return c.NoContent(http.StatusNoContent)
}

type (
	openParams struct {
		Page int `json:"page"`
	}

	updateParams struct {
		Grid []*model.ItemStack `json:"grid"`
	}

	pageParams struct {
		Delta int `json:"delta"`
	}
)
