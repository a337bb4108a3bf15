package webserver

import (
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/chestlink/internal/economy"
	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/webserver/middleware"
	"github.com/mdouchement/chestlink/internal/webserver/weberror"
	"github.com/mdouchement/logger"
)

// PermissionMaintenance grants access to the maintenance routes.
const PermissionMaintenance = "chestlink.admin.maintenance"

// A Bank is an economy bridge able to credit actors.
type Bank interface {
	economy.Bridge
	Deposit(actor uuid.UUID, amount float64) error
}

type admin struct {
	logger  logger.Logger
	manager *manager.Manager
	bank    Bank
}

// Authorize rejects actors without the maintenance permission.
func (h *admin) Authorize(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !middleware.CurrentActor(c).HasPermission(PermissionMaintenance) {
			return weberror.From(manager.ErrAccessDenied)
		}
		return next(c)
	}
}

func (h *admin) Reindex(c echo.Context) error {
	c.Set("handler_method", "admin.Reindex")

	if raw := c.Param("owner"); raw != "" {
		owner, err := uuid.FromString(raw)
		if err != nil {
			return weberror.New(http.StatusBadRequest, "invalid owner")
		}
		if err = h.manager.Reindex(owner); err != nil {
			return weberror.From(err)
		}
		return c.JSON(http.StatusOK, echo.Map{"owners": 1})
	}

	n, err := h.manager.ReindexAll()
	if err != nil {
		return weberror.From(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"owners": n})
}

func (h *admin) Purge(c echo.Context) error {
	c.Set("handler_method", "admin.Purge")

	n, err := h.manager.PurgeBroken()
	if err != nil {
		return weberror.From(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"records": n})
}

func (h *admin) Save(c echo.Context) error {
	c.Set("handler_method", "admin.Save")

	n, err := h.manager.SaveAll()
	if err != nil {
		return weberror.From(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"owners": n})
}

func (h *admin) ReadOnly(c echo.Context) error {
	c.Set("handler_method", "admin.ReadOnly")

	id, err := uuid.FromString(c.Param("actor"))
	if err != nil {
		return weberror.New(http.StatusBadRequest, "invalid actor")
	}

	h.manager.SetReadOnly(id, c.Request().Method == http.MethodPut)
	return c.NoContent(http.StatusNoContent)
}

//
// Economy
//

func (h *admin) Balance(c echo.Context) error {
	c.Set("handler_method", "admin.Balance")

	if h.bank == nil {
		return weberror.New(http.StatusNotFound, "economy unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"balance": h.bank.Balance(middleware.CurrentActor(c).ID()),
	})
}

func (h *admin) Deposit(c echo.Context) error {
	c.Set("handler_method", "admin.Deposit")

	if h.bank == nil {
		return weberror.New(http.StatusNotFound, "economy unavailable")
	}

	// Filter params
	actor, err := uuid.FromString(c.Param("actor"))
	if err != nil {
		return weberror.New(http.StatusBadRequest, "invalid actor")
	}

	var params bankDepositParams
	if err = c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	if err = h.bank.Deposit(actor, params.Amount); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	// Render response
	return c.JSON(http.StatusOK, echo.Map{
		"balance": h.bank.Balance(actor),
	})
}

type bankDepositParams struct {
	Amount float64 `json:"amount"`
}
