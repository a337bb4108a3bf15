package manager_test

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/config"
	"github.com/mdouchement/chestlink/internal/database"
	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/scheduler"
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spot = &model.Position{World: "world", X: 10, Y: 64, Z: 10}

func newLogger() logger.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logger.WrapLogrus(log)
}

// player is an Actor carrying a small personal inventory.
type player struct {
	id          uuid.UUID
	name        string
	permissions map[string]bool
	inventory   *model.ItemSlots
	xp          int
	at          *model.Position
}

func newPlayer(name string, permissions ...string) *player {
	p := &player{
		id:          uuid.Must(uuid.NewV4()),
		name:        name,
		permissions: map[string]bool{},
		inventory:   model.NewItemSlots(9, nil),
	}
	for _, permission := range permissions {
		p.permissions[permission] = true
	}
	return p
}

func (p *player) ID() uuid.UUID                       { return p.id }
func (p *player) Name() string                        { return p.name }
func (p *player) HasPermission(perm string) bool      { return p.permissions[perm] }
func (p *player) Location() *model.Position           { return p.at }
func (p *player) XPLevels() int                       { return p.xp }
func (p *player) TakeXPLevels(n int)                  { p.xp -= n }
func (p *player) CountOf(t model.ItemType) int        { return p.inventory.CountOf(t) }
func (p *player) Consume(t model.ItemType, n int) int { return p.inventory.Consume(t, n) }

func (p *player) Give(stacks ...*model.ItemStack) []*model.ItemStack {
	return p.inventory.AddItem(stacks...)
}

// countingDB counts the loads reaching the database.
type countingDB struct {
	database.Client
	loads int32
}

func (c *countingDB) Load(owner uuid.UUID) (*model.OwnerRegistry, error) {
	atomic.AddInt32(&c.loads, 1)
	time.Sleep(20 * time.Millisecond)
	return c.Client.Load(owner)
}

type env struct {
	settings *config.Settings
	db       database.Client
	queue    *scheduler.Queue
	ctrl     manager.Controller
}

func setup(t *testing.T) *env {
	log := newLogger()
	settings := config.DefaultSettings()
	settings.Capacity.Levels = map[int]int{1: 54, 2: 108, 3: 216}
	settings.Compression.Recipes = []config.Recipe{{Input: "iron_ingot", Output: "iron_block"}}

	holder := config.NewHolder(settings)
	db := database.NewFileStore(database.Controller{
		Logger:   log,
		Storage:  storage.NewFileSystem(t.TempDir()),
		Settings: holder,
	})
	queue := scheduler.NewQueue(log, time.Hour)

	return &env{
		settings: settings,
		db:       db,
		queue:    queue,
		ctrl: manager.Controller{
			Logger:   log,
			Database: db,
			Settings: holder,
			Queue:    queue,
		},
	}
}

func (e *env) manager() *manager.Manager {
	return manager.New(e.ctrl)
}

func bind(t *testing.T, m *manager.Manager, owner *player, name string, kind model.Kind, p *model.Position) *model.StorageRecord {
	m.StartBind(owner.ID(), name, kind)
	r, err := m.FinalizeBind(owner, p)
	require.NoError(t, err)
	return r
}

func TestBind(t *testing.T) {
	m := setup(t).manager()
	alice := newPlayer("alice")

	_, err := m.FinalizeBind(alice, spot)
	assert.ErrorIs(t, err, manager.ErrNoPendingBind)

	m.StartBind(alice.ID(), "", model.Double)
	bind, ok := m.PendingBind(alice.ID())
	require.True(t, ok)
	assert.Equal(t, model.Double, bind.Kind)

	r, err := m.FinalizeBind(alice, spot)
	require.NoError(t, err)
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, "Chest 1", r.Name)
	assert.Equal(t, 54, r.Capacity())

	_, ok = m.PendingBind(alice.ID())
	assert.False(t, ok)

	m.StartBind(alice.ID(), "Other", model.Single)
	_, err = m.FinalizeBind(alice, &model.Position{World: "world", X: 11, Y: 64, Z: 10})
	assert.ErrorIs(t, err, manager.ErrAlreadyBound, "second half of the double container")

	_, err = m.FinalizeBind(alice, &model.Position{})
	assert.ErrorIs(t, err, manager.ErrInvalidPosition)

	m.ClearPending(alice.ID())
	_, err = m.FinalizeBind(alice, spot)
	assert.ErrorIs(t, err, manager.ErrNoPendingBind)

	ok, err = m.CanCreate(alice.ID(), model.Double, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.CanCreate(alice.ID(), model.Single, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPendingBindExpires(t *testing.T) {
	e := setup(t)
	e.ctrl.PendingBindTTL = 10 * time.Millisecond
	m := e.manager()
	alice := newPlayer("alice")

	m.StartBind(alice.ID(), "Ores", model.Single)
	time.Sleep(30 * time.Millisecond)

	_, err := m.FinalizeBind(alice, spot)
	assert.ErrorIs(t, err, manager.ErrNoPendingBind)
}

func TestApplyCapacity(t *testing.T) {
	m := setup(t).manager()
	alice := newPlayer("alice")

	r := bind(t, m, alice, "Ores", model.Single, spot)
	assert.Equal(t, 27, r.Capacity())
	assert.False(t, m.ApplyCapacity(r))

	r.Upgrades.Set(model.Capacity, 1)
	assert.True(t, m.ApplyCapacity(r))
	assert.Equal(t, 54, r.Capacity())
	assert.False(t, m.ApplyCapacity(r))
}

func TestRegistryHeals(t *testing.T) {
	e := setup(t)
	alice := newPlayer("alice")
	grantee := uuid.Must(uuid.NewV4())

	reg := model.NewOwnerRegistry(alice.ID())
	r := reg.CreateRecord("Ores", model.Single, spot)
	r.Upgrades.Set(model.Capacity, 2)
	r.SetSharedAccess(grantee, &model.SharedAccess{Level: model.View}, time.Now())
	require.NoError(t, e.db.Save(reg))

	m := e.manager()
	loaded, err := m.Registry(alice.ID())
	require.NoError(t, err)
	healed, ok := loaded.Get(1)
	require.True(t, ok)
	assert.Equal(t, 108, healed.Capacity())

	stored, err := e.db.Load(alice.ID())
	require.NoError(t, err)
	persisted, _ := stored.Get(1)
	assert.Equal(t, 108, persisted.Capacity())
}

func TestConcurrentFirstLoad(t *testing.T) {
	e := setup(t)
	db := &countingDB{Client: e.db}
	e.ctrl.Database = db
	m := e.manager()

	owner := uuid.Must(uuid.NewV4())
	registries := make([]*model.OwnerRegistry, 16)

	var wg sync.WaitGroup
	for i := range registries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := m.Registry(owner)
			assert.NoError(t, err)
			registries[i] = reg
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&db.loads))
	for _, reg := range registries {
		assert.Same(t, registries[0], reg)
	}
}

func TestLookups(t *testing.T) {
	m := setup(t).manager()
	alice := newPlayer("alice")
	bob := newPlayer("bob")

	first := bind(t, m, alice, "Ores", model.Single, spot)
	second := bind(t, m, alice, "ores", model.Double, &model.Position{World: "world", X: 0, Y: 0, Z: 0})

	r, ok, err := m.OwnedRecord(alice.ID(), "ORES")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, first, r)

	r, ok, err = m.OwnedRecord(alice.ID(), "2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, second, r)

	r, ok, err = m.RecordAt(alice.ID(), &model.Position{World: "world", X: 0, Y: 0, Z: 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, second, r)

	_, ok, err = m.RecordAt(bob.ID(), spot)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Share(alice, second, bob.ID(), model.View, nil))
	r, ok, err = m.AccessibleRecord(bob.ID(), "ores")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, second, r, "the cached instance is shared")
}

func TestDeleteAndReindex(t *testing.T) {
	e := setup(t)
	m := e.manager()
	alice := newPlayer("alice")
	bob := newPlayer("bob")

	bind(t, m, alice, "A", model.Single, &model.Position{World: "world", X: 1})
	b := bind(t, m, alice, "B", model.Single, &model.Position{World: "world", X: 3})
	c := bind(t, m, alice, "C", model.Single, &model.Position{World: "world", X: 5})
	c.Contents.AddItem(model.NewItemStack("torch", 5))

	assert.ErrorIs(t, m.Delete(bob, b), manager.ErrNotOwner)
	require.NoError(t, m.Delete(alice, b))

	records, err := m.OwnedRecords(alice.ID())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, records[0].ID)
	assert.Equal(t, 3, records[1].ID)

	require.NoError(t, m.Reindex(alice.ID()))
	records, err = m.OwnedRecords(alice.ID())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "C", records[1].Name)
	assert.Equal(t, 2, records[1].ID)
	assert.Equal(t, 5, records[1].Contents.CountOf("torch"))

	stored, err := e.db.Load(alice.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Len())
	assert.Equal(t, 3, stored.NextID)

	shared, err := e.db.LoadSharedTo(bob.ID())
	require.NoError(t, err)
	assert.Empty(t, shared)
}

func TestPurgeBroken(t *testing.T) {
	e := setup(t)
	alice := newPlayer("alice")

	reg := model.NewOwnerRegistry(alice.ID())
	reg.CreateRecord("Lost", model.Single, nil)
	reg.CreateRecord("Kept", model.Single, spot)
	require.NoError(t, e.db.Save(reg))

	m := e.manager()
	n, err := m.PurgeBroken()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := e.db.Load(alice.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Len())
}

func TestRename(t *testing.T) {
	e := setup(t)
	m := e.manager()
	alice := newPlayer("alice")
	bob := newPlayer("bob")
	r := bind(t, m, alice, "Ores", model.Single, spot)

	assert.ErrorIs(t, m.Rename(alice, r, "  "), manager.ErrInvalidName)
	assert.ErrorIs(t, m.Rename(bob, r, "Mine"), manager.ErrNotOwner)
	require.NoError(t, m.Rename(alice, r, "Mine"))
	assert.Equal(t, "Mine", r.Name)

	_, err := m.CompleteRename(alice, "Later")
	assert.ErrorIs(t, err, manager.ErrNoPendingRename)

	require.NoError(t, m.BeginRename(alice, r))
	renamed, err := m.CompleteRename(alice, "Later")
	require.NoError(t, err)
	assert.Same(t, r, renamed)
	assert.Equal(t, "Later", r.Name)

	stored, err := e.db.Load(alice.ID())
	require.NoError(t, err)
	persisted, _ := stored.Get(r.ID)
	assert.Equal(t, "Later", persisted.Name)
}

func TestReset(t *testing.T) {
	m := setup(t).manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	r.Contents.AddItem(model.NewItemStack("stone", 100))

	require.NoError(t, m.Reset(alice, r))
	assert.Zero(t, r.Contents.UsedSlotCount())
	assert.Equal(t, 27, r.Capacity())
}

func TestSaveAll(t *testing.T) {
	e := setup(t)
	m := e.manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	r.Name = "Changed"

	n, err := m.SaveAll()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := e.db.Load(alice.ID())
	require.NoError(t, err)
	persisted, _ := stored.Get(1)
	assert.Equal(t, "Changed", persisted.Name)
}
