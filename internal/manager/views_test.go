package manager_test

import (
	"testing"
	"time"

	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViews(t *testing.T) {
	m := setup(t).manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	r.Upgrades.Set(model.Capacity, 2)
	require.True(t, m.ApplyCapacity(r))

	v, err := m.OpenPage(alice, r, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, v.Handle)
	assert.Equal(t, 3, v.PageCount)
	assert.Equal(t, model.IconNext, v.Grid[v.NextSlot].Type)

	grid := v.Grid
	grid[0] = model.NewItemStack("stone", 10)
	grid[v.NextSlot] = nil
	changed, err := m.UpdateView(alice, v.Handle, grid)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 10, r.Contents.Get(0).Amount)

	registered, ok := m.View(v.Handle)
	require.True(t, ok)
	assert.Equal(t, model.IconNext, registered.Grid[v.NextSlot].Type, "icons are not synced")

	next, err := m.ChangePage(alice, v.Handle, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, next.PageIndex)
	assert.NotEqual(t, v.Handle, next.Handle)

	_, ok = m.View(v.Handle)
	assert.False(t, ok)
	_, err = m.ChangePage(alice, v.Handle, 1)
	assert.ErrorIs(t, err, manager.ErrUnknownView)

	last, err := m.ChangePage(alice, next.Handle, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, last.PageIndex, "clamped to the last page")

	assert.True(t, m.CloseView(last.Handle))
	assert.False(t, m.CloseView(last.Handle))
}

func TestViewsAccess(t *testing.T) {
	m := setup(t).manager()
	alice := newPlayer("alice")
	bob := newPlayer("bob")
	admin := newPlayer("admin", manager.PermissionAdmin)
	r := bind(t, m, alice, "Ores", model.Single, spot)

	_, err := m.OpenPage(bob, r, 0)
	assert.ErrorIs(t, err, manager.ErrAccessDenied)

	require.NoError(t, m.Share(alice, r, bob.ID(), model.View, nil))
	v, err := m.OpenPage(bob, r, 0)
	require.NoError(t, err)
	_, err = m.SyncView(bob, v.Handle)
	assert.ErrorIs(t, err, manager.ErrAccessDenied)

	require.NoError(t, m.Share(alice, r, bob.ID(), model.Modify, nil))
	_, err = m.SyncView(bob, v.Handle)
	assert.NoError(t, err)

	m.SetReadOnly(bob.ID(), true)
	assert.True(t, m.IsReadOnly(bob.ID()))
	_, err = m.SyncView(bob, v.Handle)
	assert.ErrorIs(t, err, manager.ErrAccessDenied)
	m.SetReadOnly(bob.ID(), false)

	v, err = m.OpenPage(admin, r, 0)
	require.NoError(t, err)
	_, err = m.SyncView(admin, v.Handle)
	assert.NoError(t, err)
}

func TestUpdateViewRunsTransforms(t *testing.T) {
	e := setup(t)
	m := e.manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	r.Upgrades.Set(model.Filtering, 1)
	r.Upgrades.Set(model.Compression, 1)
	r.Upgrades.Set(model.AutoSort, 1)
	r.Filter = model.NewFilter(model.Blacklist, "dirt")

	v, err := m.OpenPage(alice, r, 0)
	require.NoError(t, err)

	grid := make([]*model.ItemStack, len(v.Grid))
	grid[3] = model.NewItemStack("dirt", 4)
	grid[7] = model.NewItemStack("iron_ingot", 9)
	changed, err := m.UpdateView(alice, v.Handle, grid)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, 4, alice.CountOf("dirt"))
	assert.Zero(t, r.Contents.CountOf("iron_ingot"))
	assert.Equal(t, 1, r.Contents.CountOf("iron_block"))

	assert.Equal(t, 1, e.queue.Advance())
	assert.Equal(t, model.ItemType("iron_block"), r.Contents.Get(0).Type)

	registered, ok := m.View(v.Handle)
	require.True(t, ok)
	assert.Equal(t, model.ItemType("iron_block"), registered.Grid[0].Type, "views are rendered again")
}

func TestSharing(t *testing.T) {
	m := setup(t).manager()
	alice := newPlayer("alice")
	bob := newPlayer("bob")
	r := bind(t, m, alice, "Ores", model.Single, spot)

	assert.ErrorIs(t, m.Share(bob, r, bob.ID(), model.View, nil), manager.ErrNotOwner)
	assert.ErrorIs(t, m.Share(alice, r, alice.ID(), model.View, nil), manager.ErrShareSelf)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, m.Share(alice, r, bob.ID(), model.Modify, &past))
	records, err := m.AccessibleRecords(bob.ID())
	require.NoError(t, err)
	assert.Empty(t, records, "expired grant")

	future := time.Now().Add(time.Hour)
	require.NoError(t, m.Share(alice, r, bob.ID(), model.Modify, &future))
	records, err = m.AccessibleRecords(bob.ID())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Same(t, r, records[0])
	assert.True(t, m.CanModify(bob, r))

	require.NoError(t, m.Unshare(alice, r, bob.ID()))
	records, err = m.AccessibleRecords(bob.ID())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.False(t, m.CanView(bob, r))
}

func TestFilterEditing(t *testing.T) {
	e := setup(t)
	e.settings.Filter.MaxEntries = 2
	m := e.manager()
	alice := newPlayer("alice")
	bob := newPlayer("bob")
	r := bind(t, m, alice, "Ores", model.Single, spot)

	_, err := m.AddFilterEntry(bob, r, "dirt")
	assert.ErrorIs(t, err, manager.ErrNotOwner)

	ok, err := m.AddFilterEntry(alice, r, "dirt")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.AddFilterEntry(alice, r, "dirt")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.AddFilterEntry(alice, r, "sand")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = m.AddFilterEntry(alice, r, "gravel")
	assert.ErrorIs(t, err, manager.ErrFilterFull)

	require.NoError(t, m.SetFilterMode(alice, r, model.Blacklist))
	assert.Equal(t, model.Blacklist, r.Filter.Mode)

	ok, err = m.RemoveFilterEntry(alice, r, "sand")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.RemoveFilterEntry(alice, r, "sand")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []model.ItemType{"dirt"}, r.Filter.Entries())
}
