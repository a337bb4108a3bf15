package service_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/webserver/service"
	"github.com/mdouchement/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)

	r := httptest.NewRequest("PUT", "/", nil)
	at, err := service.ShareExpiry(r, now)
	require.NoError(t, err)
	assert.Nil(t, at)

	r.Header.Set(service.HeaderExpireAt, "1700000600")
	at, err = service.ShareExpiry(r, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), *at)

	r.Header.Set(service.HeaderExpireAfter, "60")
	at, err = service.ShareExpiry(r, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), *at, "relative expiry wins")

	r.Header.Set(service.HeaderExpireAfter, "soon")
	_, err = service.ShareExpiry(r, now)
	assert.Error(t, err)
}

func TestDropLedger(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ledger := service.NewDropLedger(logger.WrapLogrus(log), 2)

	at := &model.Position{World: "world", X: 1}
	ledger.Drop(at, []*model.ItemStack{nil, model.NewItemStack("dirt", 3)})
	ledger.Drop(nil, []*model.ItemStack{model.NewItemStack("stone", 1)})
	ledger.Drop(at, nil)
	ledger.Drop(at, []*model.ItemStack{model.NewItemStack("sand", 2)})

	at.X = 42

	drops := ledger.Drops()
	require.Len(t, drops, 2)
	assert.Nil(t, drops[0].At)
	assert.Equal(t, model.ItemType("stone"), drops[0].Items[0].Type)
	assert.Equal(t, 1, drops[1].At.X, "positions are copied")
	assert.Equal(t, model.ItemType("sand"), drops[1].Items[0].Type)
}
