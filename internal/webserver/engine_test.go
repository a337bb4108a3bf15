package webserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/config"
	"github.com/mdouchement/chestlink/internal/database"
	"github.com/mdouchement/chestlink/internal/economy"
	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/chestlink/internal/webserver"
	mw "github.com/mdouchement/chestlink/internal/webserver/middleware"
	"github.com/mdouchement/chestlink/internal/webserver/service"
	"github.com/mdouchement/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type caller struct {
	id          uuid.UUID
	name        string
	permissions []string
}

func newCaller(name string, permissions ...string) caller {
	return caller{
		id:          uuid.Must(uuid.NewV4()),
		name:        name,
		permissions: permissions,
	}
}

type client struct {
	t   *testing.T
	url string
}

func (c *client) do(who caller, method, path string, body interface{}, headers ...string) (int, interface{}) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.url+path, payload)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if who.id != uuid.Nil {
		req.Header.Set(mw.HeaderActorID, who.id.String())
		req.Header.Set(mw.HeaderActorName, who.name)
		req.Header.Set(mw.HeaderActorPermissions, strings.Join(who.permissions, ","))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()

	var out interface{}
	if res.ContentLength != 0 {
		_ = json.NewDecoder(res.Body).Decode(&out)
	}
	return res.StatusCode, out
}

func setup(t *testing.T, rateLimit float64) *client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	l := logger.WrapLogrus(log)

	holder := config.NewHolder(config.DefaultSettings())
	db := database.NewFileStore(database.Controller{
		Logger:   l,
		Storage:  storage.NewFileSystem(t.TempDir()),
		Settings: holder,
	})
	drops := service.NewDropLedger(l, 100)
	bank := economy.NewLedger(0)

	m := manager.New(manager.Controller{
		Logger:   l,
		Database: db,
		Settings: holder,
		Economy:  bank,
		Host:     drops,
	})

	engine := webserver.EchoEngine(webserver.Controller{
		Version:   "test",
		Logger:    l,
		Manager:   m,
		Drops:     drops,
		Bank:      bank,
		RateLimit: rateLimit,
	})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &client{t: t, url: server.URL}
}

func field(v interface{}, path ...string) interface{} {
	for _, key := range path {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

func bindRecord(c *client, who caller, name string) {
	status, _ := c.do(who, http.MethodPost, "/v1/binds", map[string]string{"name": name})
	require.Equal(c.t, http.StatusAccepted, status)

	status, _ = c.do(who, http.MethodPost, "/v1/binds/finalize", map[string]interface{}{
		"world": "world", "x": 1, "y": 64, "z": 1,
	})
	require.Equal(c.t, http.StatusCreated, status)
}

func TestVersion(t *testing.T) {
	c := setup(t, 0)

	status, body := c.do(caller{}, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test", field(body, "version"))

	status, _ = c.do(caller{}, http.MethodGet, "/v1/records", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBindAndRecords(t *testing.T) {
	c := setup(t, 0)
	alice := newCaller("alice")

	status, _ := c.do(alice, http.MethodPost, "/v1/binds/finalize", map[string]interface{}{"world": "world"})
	assert.Equal(t, http.StatusConflict, status, "no pending bind")

	status, _ = c.do(alice, http.MethodPost, "/v1/binds", map[string]string{"type": "barrel"})
	assert.Equal(t, http.StatusBadRequest, status)

	bindRecord(c, alice, "Ores")

	status, body := c.do(alice, http.MethodGet, "/v1/records", nil)
	require.Equal(t, http.StatusOK, status)
	records, _ := body.([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "Ores", field(records[0], "name"))
	assert.EqualValues(t, 27, field(records[0], "capacity"))

	status, body = c.do(alice, http.MethodPatch, "/v1/records/ores", map[string]string{"name": "Mine"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Mine", field(body, "name"))

	status, body = c.do(alice, http.MethodGet, "/v1/records/1/pages", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body, 1)

	status, _ = c.do(alice, http.MethodGet, "/v1/records/Ores", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = c.do(alice, http.MethodDelete, "/v1/records/1", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = c.do(alice, http.MethodGet, "/v1/records", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)
}

func TestSharing(t *testing.T) {
	c := setup(t, 0)
	alice := newCaller("alice")
	bob := newCaller("bob")
	bindRecord(c, alice, "Ores")

	status, _ := c.do(bob, http.MethodGet, "/v1/records/1", nil)
	assert.Equal(t, http.StatusNotFound, status)

	path := "/v1/records/1/shares/" + bob.id.String()
	status, _ = c.do(bob, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusNotFound, status, "bob cannot resolve the record yet")

	status, _ = c.do(alice, http.MethodPut, path, map[string]string{"access": "modify"}, service.HeaderExpireAfter, "3600")
	require.Equal(t, http.StatusNoContent, status)

	status, body := c.do(bob, http.MethodGet, "/v1/records", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body, 1)

	status, _ = c.do(bob, http.MethodPatch, "/v1/records/Ores", map[string]string{"name": "Stolen"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = c.do(alice, http.MethodPut, "/v1/records/1/shares/"+alice.id.String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = c.do(alice, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = c.do(bob, http.MethodGet, "/v1/records", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)
}

func TestViews(t *testing.T) {
	c := setup(t, 0)
	alice := newCaller("alice")
	bob := newCaller("bob")
	bindRecord(c, alice, "Ores")

	status, body := c.do(alice, http.MethodPost, "/v1/records/1/views", map[string]int{"page": 0})
	require.Equal(t, http.StatusCreated, status)
	handle, _ := field(body, "handle").(string)
	require.NotEmpty(t, handle)

	status, _ = c.do(bob, http.MethodGet, "/v1/views/"+handle, nil)
	assert.Equal(t, http.StatusForbidden, status)

	grid := make([]interface{}, 27)
	grid[4] = map[string]interface{}{"type": "minecraft:stone", "amount": 12}
	status, body = c.do(alice, http.MethodPut, "/v1/views/"+handle, map[string]interface{}{"grid": grid})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, field(body, "changed"))
	cells, _ := field(body, "view", "grid").([]interface{})
	require.Len(t, cells, 27)
	assert.Equal(t, "stone", field(cells[4], "type"))

	status, body = c.do(alice, http.MethodPost, "/v1/views/"+handle+"/page", map[string]int{"delta": 1})
	require.Equal(t, http.StatusOK, status)
	next, _ := field(body, "handle").(string)
	assert.NotEqual(t, handle, next)

	status, _ = c.do(alice, http.MethodGet, "/v1/views/"+handle, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = c.do(alice, http.MethodDelete, "/v1/views/"+next, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = c.do(alice, http.MethodDelete, "/v1/views/"+next, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpgradeFilterAndDrops(t *testing.T) {
	c := setup(t, 0)
	alice := newCaller("alice", manager.PermissionUpgrade+"filter")
	bindRecord(c, alice, "Ores")

	status, _ := c.do(alice, http.MethodPost, "/v1/records/1/upgrades/auto_sort", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = c.do(alice, http.MethodPost, "/v1/records/1/upgrades/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := c.do(alice, http.MethodPost, "/v1/records/1/upgrades/filter", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, field(body, "level"))

	status, _ = c.do(alice, http.MethodPost, "/v1/records/1/upgrades/filter", nil)
	assert.Equal(t, http.StatusConflict, status, "max level")

	status, body = c.do(alice, http.MethodPut, "/v1/records/1/filter", map[string]interface{}{
		"mode": "blacklist",
		"add":  []string{"dirt"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "blacklist", field(body, "mode"))

	status, body = c.do(alice, http.MethodPost, "/v1/records/1/views", nil)
	require.Equal(t, http.StatusCreated, status)
	handle, _ := field(body, "handle").(string)

	grid := make([]interface{}, 27)
	grid[0] = map[string]interface{}{"type": "dirt", "amount": 5}
	status, body = c.do(alice, http.MethodPut, "/v1/views/"+handle, map[string]interface{}{"grid": grid}, mw.HeaderActorLocation, "world,5,70,5")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, field(body, "changed"))

	status, body = c.do(alice, http.MethodGet, "/v1/drops", nil)
	require.Equal(t, http.StatusOK, status)
	drops, _ := body.([]interface{})
	require.Len(t, drops, 1)
	assert.EqualValues(t, 5, field(drops[0], "at", "x"))
	items, _ := field(drops[0], "items").([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "dirt", field(items[0], "type"))
}

func TestDeposit(t *testing.T) {
	c := setup(t, 0)
	alice := newCaller("alice")
	bob := newCaller("bob")
	bindRecord(c, alice, "Ores")

	status, _ := c.do(alice, http.MethodPost, "/v1/records/1/deposits", map[string]interface{}{"type": "not an item", "amount": 1})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = c.do(alice, http.MethodPost, "/v1/records/1/deposits", map[string]interface{}{"type": "stone", "amount": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = c.do(bob, http.MethodPost, "/v1/records/1/deposits", map[string]interface{}{"type": "stone", "amount": 1})
	assert.Equal(t, http.StatusNotFound, status)

	status, body := c.do(alice, http.MethodPost, "/v1/records/1/deposits", map[string]interface{}{"type": "stone", "amount": 2000},
		mw.HeaderActorLocation, "world,7,70,7")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 27*64, field(body, "stored"))
	assert.EqualValues(t, 27, field(body, "record", "used_slots"))

	status, body = c.do(alice, http.MethodGet, "/v1/drops", nil)
	require.Equal(t, http.StatusOK, status)
	drops, _ := body.([]interface{})
	require.Len(t, drops, 1)
	assert.EqualValues(t, 7, field(drops[0], "at", "x"))
	items, _ := field(drops[0], "items").([]interface{})
	require.Len(t, items, 1)
	assert.EqualValues(t, 2000-27*64, field(items[0], "amount"))
}

func TestMaintenance(t *testing.T) {
	c := setup(t, 0)
	alice := newCaller("alice")
	admin := newCaller("admin", webserver.PermissionMaintenance)
	bindRecord(c, alice, "Ores")

	status, _ := c.do(alice, http.MethodPost, "/v1/admin/save", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := c.do(admin, http.MethodPost, "/v1/admin/save", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, field(body, "owners"))

	status, body = c.do(admin, http.MethodPost, "/v1/admin/purge", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, field(body, "records"))

	status, _ = c.do(admin, http.MethodPost, "/v1/admin/reindex/"+alice.id.String(), nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = c.do(admin, http.MethodPut, "/v1/admin/read-only/"+alice.id.String(), nil)
	require.Equal(t, http.StatusNoContent, status)
	status, body = c.do(alice, http.MethodPost, "/v1/records/1/views", nil)
	require.Equal(t, http.StatusCreated, status)
	handle, _ := field(body, "handle").(string)
	status, _ = c.do(alice, http.MethodPut, "/v1/views/"+handle, map[string]interface{}{"grid": nil})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = c.do(admin, http.MethodPost, "/v1/admin/balances/"+alice.id.String(), map[string]float64{"amount": 42})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 42, field(body, "balance"))

	status, body = c.do(alice, http.MethodGet, "/v1/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 42, field(body, "balance"))

	status, _ = c.do(admin, http.MethodPost, "/v1/admin/balances/"+alice.id.String(), map[string]float64{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRateLimiter(t *testing.T) {
	c := setup(t, 1)
	alice := newCaller("alice")

	status, _ := c.do(alice, http.MethodGet, "/v1/records", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = c.do(alice, http.MethodGet, "/v1/records", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)

	time.Sleep(1100 * time.Millisecond)
	status, _ = c.do(alice, http.MethodGet, "/v1/records", nil)
	assert.Equal(t, http.StatusOK, status)
}
