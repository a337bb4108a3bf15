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

type bind struct {
	logger  logger.Logger
	manager *manager.Manager
}

func (h *bind) Start(c echo.Context) error {
	c.Set("handler_method", "bind.Start")
	actor := middleware.CurrentActor(c)

	// Filter params
	var params bindParams
	if err := c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	kind := model.Single
	if params.Type != "" {
		var ok bool
		if kind, ok = model.ParseKind(params.Type); !ok {
			return weberror.New(http.StatusBadRequest, "unknown container type "+params.Type)
		}
	}

	h.manager.StartBind(actor.ID(), params.Name, kind)

	// Render response
	return c.JSON(http.StatusAccepted, echo.Map{
		"name": params.Name,
		"type": kind.String(),
	})
}

func (h *bind) Finalize(c echo.Context) error {
	c.Set("handler_method", "bind.Finalize")
	actor := middleware.CurrentActor(c)

	// Filter params
	var position model.Position
	if err := c.Bind(&position); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	r, err := h.manager.FinalizeBind(actor, &position)
	if err != nil {
		return weberror.From(err)
	}

	// Render response
	return c.JSON(http.StatusCreated, serializer.Record(h.manager.Snapshot(r)))
}

func (h *bind) Cancel(c echo.Context) error {
	c.Set("handler_method", "bind.Cancel")

	h.manager.ClearPending(middleware.CurrentActor(c).ID())
	return c.NoContent(http.StatusNoContent)
}

type bindParams struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
