package manager_test

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/manager/mocks"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill leaves only free slots empty in r.
func fill(r *model.StorageRecord, free int) {
	for i := 0; i < r.Capacity()-free; i++ {
		r.Contents.AddItem(model.NewItemStack("cobblestone", 64))
	}
}

func TestDeposit(t *testing.T) {
	e := setup(t)
	m := e.manager()
	alice := newPlayer("alice")
	bob := newPlayer("bob")
	r := bind(t, m, alice, "Ores", model.Single, spot)

	_, err := m.Deposit(bob, r, model.NewItemStack("stone", 1))
	assert.ErrorIs(t, err, manager.ErrAccessDenied)

	moved, err := m.Deposit(alice, r, model.NewItemStack("stone", 100))
	require.NoError(t, err)
	assert.Equal(t, 100, moved)
	assert.Equal(t, 64, r.Contents.Get(0).Amount)
	assert.Equal(t, 36, r.Contents.Get(1).Amount)

	moved, err = m.Deposit(alice, r, nil)
	require.NoError(t, err)
	assert.Zero(t, moved)

	stored, err := e.db.Load(alice.ID())
	require.NoError(t, err)
	persisted, ok := stored.Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, 100, persisted.Contents.CountOf("stone"))
}

func TestDepositDeny(t *testing.T) {
	e := setup(t)
	e.settings.Deposit.Overflow = model.Deny
	m := e.manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	fill(r, 1)

	_, err := m.Deposit(alice, r, model.NewItemStack("stone", 65))
	assert.ErrorIs(t, err, manager.ErrRecordFull)
	assert.Zero(t, r.Contents.CountOf("stone"), "nothing stored")
	assert.Zero(t, alice.CountOf("stone"))

	moved, err := m.Deposit(alice, r, model.NewItemStack("stone", 64))
	require.NoError(t, err)
	assert.Equal(t, 64, moved)
}

func TestDepositReturnsLeftovers(t *testing.T) {
	e := setup(t)
	m := e.manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	fill(r, 1)

	moved, err := m.Deposit(alice, r, model.NewItemStack("stone", 80))
	require.NoError(t, err)
	assert.Equal(t, 64, moved)
	assert.Equal(t, 64, r.Contents.CountOf("stone"))
	assert.Equal(t, 16, alice.CountOf("stone"))
}

func TestDepositDropsLeftovers(t *testing.T) {
	e := setup(t)
	e.settings.Deposit.Overflow = model.Drop
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	host := mocks.NewMockHost(ctrl)
	e.ctrl.Host = host
	m := e.manager()

	alice := newPlayer("alice")
	alice.at = &model.Position{World: "world", X: 2, Y: 64, Z: 2}
	r := bind(t, m, alice, "Ores", model.Single, spot)
	fill(r, 0)

	var dropped []*model.ItemStack
	host.EXPECT().Drop(alice.at, gomock.Any()).Do(func(_ *model.Position, stacks []*model.ItemStack) {
		dropped = append(dropped, stacks...)
	})

	moved, err := m.Deposit(alice, r, model.NewItemStack("stone", 10))
	require.NoError(t, err)
	assert.Zero(t, moved)
	require.Len(t, dropped, 1)
	assert.Equal(t, 10, dropped[0].Amount)
	assert.Zero(t, alice.CountOf("stone"))
}

func TestDepositRunsTransforms(t *testing.T) {
	e := setup(t)
	m := e.manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	r.Upgrades.Set(model.Filtering, 1)
	r.Upgrades.Set(model.Compression, 1)
	r.Upgrades.Set(model.AutoSort, 1)
	r.Filter = model.NewFilter(model.Blacklist, "dirt")

	_, err := m.Deposit(alice, r, model.NewItemStack("dirt", 3))
	require.NoError(t, err)
	assert.Zero(t, r.Contents.CountOf("dirt"))
	assert.Equal(t, 3, alice.CountOf("dirt"))

	_, err = m.Deposit(alice, r, model.NewItemStack("iron_ingot", 18))
	require.NoError(t, err)
	assert.Zero(t, r.Contents.CountOf("iron_ingot"))
	assert.Equal(t, 2, r.Contents.CountOf("iron_block"))
	assert.Equal(t, 1, e.queue.Len(), "auto-sort scheduled once")
}

func TestDepositUsesConfiguredStackSize(t *testing.T) {
	e := setup(t)
	e.settings.StackSizes["ender_pearl"] = 16
	m := e.manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)

	moved, err := m.Deposit(alice, r, model.NewItemStack("ender_pearl", 20))
	require.NoError(t, err)
	assert.Equal(t, 20, moved)
	assert.Equal(t, 16, r.Contents.Get(0).Amount)
	assert.Equal(t, 4, r.Contents.Get(1).Amount)
}

func TestUpdateViewCapsStacks(t *testing.T) {
	e := setup(t)
	e.settings.StackSizes["ender_pearl"] = 16
	m := e.manager()
	alice := newPlayer("alice")
	r := bind(t, m, alice, "Ores", model.Single, spot)
	r.Contents.AddItem(e.settings.NewStack("ender_pearl", 10))

	v, err := m.OpenPage(alice, r, 0)
	require.NoError(t, err)

	grid := make([]*model.ItemStack, len(v.Grid))
	grid[0] = r.Contents.Get(0)
	grid[1] = model.NewItemStack("stone", 5000)
	grid[2] = model.NewItemStack("ender_pearl", 4)
	_, err = m.UpdateView(alice, v.Handle, grid)
	require.NoError(t, err)

	for i := 0; i < r.Capacity(); i++ {
		if stack := r.Contents.Get(i); stack != nil {
			assert.LessOrEqual(t, stack.Amount, stack.MaxStack(), "slot %d", i)
		}
	}
	assert.Equal(t, 64, r.Contents.Get(1).Amount)
	assert.Equal(t, 14, r.Contents.CountOf("ender_pearl"))
	assert.Equal(t, 16, r.Contents.Get(2).MaxStackSize, "sized from the settings")
	assert.True(t, r.Contents.Get(0).IsSimilar(r.Contents.Get(2)))

	// The 24 free slots take part of the excess, the player gets what fits in their inventory.
	assert.Equal(t, 25*64, r.Contents.CountOf("stone"))
	assert.Equal(t, 9*64, alice.CountOf("stone"))
}
