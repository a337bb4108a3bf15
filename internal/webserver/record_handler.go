package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/webserver/middleware"
	"github.com/mdouchement/chestlink/internal/webserver/serializer"
	"github.com/mdouchement/chestlink/internal/webserver/service"
	"github.com/mdouchement/chestlink/internal/webserver/weberror"
	"github.com/mdouchement/chestlink/internal/xpath"
	"github.com/mdouchement/logger"
)

type record struct {
	logger  logger.Logger
	manager *manager.Manager
}

// load resolves the :ref param among the records accessible to the actor.
// A storage key reaches the record of any owner, subject to the view permission.
func (h *record) load(c echo.Context) (*model.StorageRecord, error) {
	actor := middleware.CurrentActor(c)
	ref := xpath.Reference(c.Param("ref"))

	var (
		r   *model.StorageRecord
		ok  bool
		err error
	)
	if owner, id, kerr := model.ParseStorageKey(ref); kerr == nil {
		r, ok, err = h.manager.OwnedRecord(owner, strconv.Itoa(id))
	} else {
		r, ok, err = h.manager.AccessibleRecord(actor.ID(), ref)
	}
	if err != nil {
		return nil, weberror.From(err)
	}
	if !ok || !h.manager.CanView(actor, r) {
		return nil, weberror.New(http.StatusNotFound, "record not found")
	}
	return r, nil
}

func (h *record) List(c echo.Context) error {
	c.Set("handler_method", "record.List")

	records, err := h.manager.AccessibleRecords(middleware.CurrentActor(c).ID())
	if err != nil {
		return weberror.From(err)
	}
	for i, r := range records {
		records[i] = h.manager.Snapshot(r)
	}

	//

	if c.Request().Header.Get("Accept") == "text/plain" {
		return c.String(http.StatusOK, serializer.TextRecords(records))
	}
	// "application/json"
	return c.JSON(http.StatusOK, serializer.Records(records))
}

func (h *record) Show(c echo.Context) error {
	c.Set("handler_method", "record.Show")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Record(h.manager.Snapshot(r)))
}

func (h *record) Rename(c echo.Context) error {
	c.Set("handler_method", "record.Rename")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	// Filter params
	var params renameParams
	if err = c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	if err = h.manager.Rename(middleware.CurrentActor(c), r, params.Name); err != nil {
		return weberror.From(err)
	}

	// Render response
	return c.JSON(http.StatusOK, serializer.Record(h.manager.Snapshot(r)))
}

func (h *record) Delete(c echo.Context) error {
	c.Set("handler_method", "record.Delete")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	if err = h.manager.Delete(middleware.CurrentActor(c), r); err != nil {
		return weberror.From(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *record) Reset(c echo.Context) error {
	c.Set("handler_method", "record.Reset")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	if err = h.manager.Reset(middleware.CurrentActor(c), r); err != nil {
		return weberror.From(err)
	}

	return c.NoContent(http.StatusNoContent)
}

//
// Sharing
//

func (h *record) Share(c echo.Context) error {
	c.Set("handler_method", "record.Share")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	// Filter params
	grantee, err := uuid.FromString(c.Param("grantee"))
	if err != nil {
		return weberror.New(http.StatusBadRequest, "invalid grantee")
	}

	var params shareParams
	if err = c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	level := model.View
	if params.Access != "" {
		var ok bool
		if level, ok = model.ParseAccessLevel(params.Access); !ok {
			return weberror.New(http.StatusBadRequest, "unknown access "+params.Access)
		}
	}

	expiresAt, err := service.ShareExpiry(c.Request(), time.Now())
	if err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	if err = h.manager.Share(middleware.CurrentActor(c), r, grantee, level, expiresAt); err != nil {
		return weberror.From(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *record) Unshare(c echo.Context) error {
	c.Set("handler_method", "record.Unshare")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	grantee, err := uuid.FromString(c.Param("grantee"))
	if err != nil {
		return weberror.New(http.StatusBadRequest, "invalid grantee")
	}

	if err = h.manager.Unshare(middleware.CurrentActor(c), r, grantee); err != nil {
		return weberror.From(err)
	}

	return c.NoContent(http.StatusNoContent)
}

//
// Upgrades & filter
//

func (h *record) Upgrade(c echo.Context) error {
	c.Set("handler_method", "record.Upgrade")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	kind, ok := model.ParseUpgradeKind(c.Param("kind"))
	if !ok {
		return weberror.New(http.StatusNotFound, "unknown upgrade "+c.Param("kind"))
	}

	level, err := h.manager.PurchaseUpgrade(middleware.CurrentActor(c), r, kind)
	if err != nil {
		return weberror.From(err)
	}

	// Render response
	return c.JSON(http.StatusOK, echo.Map{
		"kind":   kind,
		"level":  level,
		"record": serializer.Record(h.manager.Snapshot(r)),
	})
}

func (h *record) Filter(c echo.Context) error {
	c.Set("handler_method", "record.Filter")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	// Filter params
	var params filterParams
	if err = c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}

	actor := middleware.CurrentActor(c)
	if params.Mode != "" {
		mode := model.ParseFilterMode(params.Mode, -1)
		if mode < 0 {
			return weberror.New(http.StatusBadRequest, "unknown filter mode "+params.Mode)
		}
		if err = h.manager.SetFilterMode(actor, r, mode); err != nil {
			return weberror.From(err)
		}
	}

	for _, raw := range params.Add {
		t, ok := model.ParseItemType(raw)
		if !ok {
			return weberror.New(http.StatusBadRequest, "invalid item type "+raw)
		}
		if _, err = h.manager.AddFilterEntry(actor, r, t); err != nil {
			return weberror.From(err)
		}
	}

	for _, raw := range params.Remove {
		t, ok := model.ParseItemType(raw)
		if !ok {
			return weberror.New(http.StatusBadRequest, "invalid item type "+raw)
		}
		if _, err = h.manager.RemoveFilterEntry(actor, r, t); err != nil {
			return weberror.From(err)
		}
	}

	// Render response
	return c.JSON(http.StatusOK, serializer.Filter(h.manager.Snapshot(r).Filter))
}

func (h *record) Deposit(c echo.Context) error {
	c.Set("handler_method", "record.Deposit")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	// Filter params
	var params depositParams
	if err = c.Bind(&params); err != nil {
		return weberror.New(http.StatusBadRequest, err.Error())
	}
	t, ok := model.ParseItemType(params.Type)
	if !ok {
		return weberror.New(http.StatusBadRequest, "invalid item type "+params.Type)
	}
	if params.Amount <= 0 {
		return weberror.New(http.StatusBadRequest, "invalid amount")
	}

	stack := model.NewItemStack(t, params.Amount)
	stack.DisplayName = params.DisplayName
	moved, err := h.manager.Deposit(middleware.CurrentActor(c), r, stack)
	if err != nil {
		return weberror.From(err)
	}

	// Render response
	return c.JSON(http.StatusOK, echo.Map{
		"stored": moved,
		"record": serializer.Record(h.manager.Snapshot(r)),
	})
}

func (h *record) Pages(c echo.Context) error {
	c.Set("handler_method", "record.Pages")

	r, err := h.load(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Pages(h.manager.Snapshot(r).Paginate()))
}

type (
	renameParams struct {
		Name string `json:"name"`
	}

	shareParams struct {
		Access string `json:"access"`
	}

	depositParams struct {
		Type        string `json:"type"`
		Amount      int    `json:"amount"`
		DisplayName string `json:"display_name"`
	}

	filterParams struct {
		Mode   string   `json:"mode"`
		Add    []string `json:"add"`
		Remove []string `json:"remove"`
	}
)
