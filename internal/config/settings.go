package config

import (
	"sort"

	"github.com/mdouchement/chestlink/internal/model"
)

type (
	// Settings holds the upgrade related configuration.
	Settings struct {
		Upgrades    map[model.UpgradeKind]UpgradeEntry
		Capacity    CapacityTable
		Deposit     DepositSettings
		Filter      FilterSettings
		Compression CompressionSettings
		Limits      LimitSettings
		StackSizes  map[model.ItemType]int
	}

	// An UpgradeEntry toggles an upgrade and prices its levels.
	UpgradeEntry struct {
		Enabled bool
		Costs   map[int]Cost
	}

	// A CapacityTable maps capacity upgrade levels to slot counts.
	// Single and Double override Levels for their kind when not empty.
	// A MaxSlots <= 0 means unbounded.
	CapacityTable struct {
		Levels   map[int]int
		Single   map[int]int
		Double   map[int]int
		MaxSlots int
	}

	// DepositSettings configures the items sent straight into a record.
	// A Deny overflow refuses deposits that do not fully fit.
	DepositSettings struct {
		Overflow model.OverflowPolicy
	}

	// FilterSettings configures the filter upgrade.
	FilterSettings struct {
		DefaultMode model.FilterMode
		Overflow    model.OverflowPolicy
		MaxEntries  int
	}

	// A Recipe compresses 9 items of Input into one item of Output.
	Recipe struct {
		Input  model.ItemType
		Output model.ItemType
	}

	// CompressionSettings configures the compression upgrade.
	CompressionSettings struct {
		Recipes  []Recipe
		Overflow model.OverflowPolicy
	}
)

// DefaultSettings returns the settings used when no settings file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Upgrades:    map[model.UpgradeKind]UpgradeEntry{},
		Capacity:    CapacityTable{},
		Deposit:     DepositSettings{Overflow: model.Return},
		Filter:      DefaultFilterSettings(),
		Compression: CompressionSettings{Overflow: model.Return},
		StackSizes:  map[model.ItemType]int{},
	}
}

// DefaultFilterSettings returns the filter settings used when the section is absent.
func DefaultFilterSettings() FilterSettings {
	return FilterSettings{
		DefaultMode: model.Blacklist,
		Overflow:    model.Return,
		MaxEntries:  27,
	}
}

// IsEnabled returns true if the upgrade kind can be unlocked. Unconfigured kinds are enabled.
func (s *Settings) IsEnabled(kind model.UpgradeKind) bool {
	entry, ok := s.Upgrades[kind]
	return !ok || entry.Enabled
}

// Cost returns the price of the given level of the upgrade kind. Unpriced levels are free.
func (s *Settings) Cost(kind model.UpgradeKind, level int) Cost {
	entry, ok := s.Upgrades[kind]
	if !ok {
		return Cost{}
	}
	return entry.Costs[level]
}

// MaxStackSize returns the stack size of the item type.
func (s *Settings) MaxStackSize(t model.ItemType) int {
	if n, ok := s.StackSizes[t]; ok && n > 0 {
		return n
	}
	return model.DefaultMaxStackSize
}

// NewStack returns a stack of the item type sized from the settings.
func (s *Settings) NewStack(t model.ItemType, amount int) *model.ItemStack {
	stack := model.NewItemStack(t, amount)
	stack.MaxStackSize = s.MaxStackSize(t)
	return stack
}

// SizeForLevel returns the number of slots a record of the kind should have at the capacity level.
// The result is never below the kind's base capacity nor the current capacity.
func (t CapacityTable) SizeForLevel(level int, kind model.Kind, current int) int {
	base := max(kind.BaseCapacity(), current)
	if level <= 0 {
		return base
	}

	configured, ok := floor(t.levelsFor(kind), level)
	if !ok {
		return base
	}

	configured = max(1, configured)
	if t.MaxSlots > 0 {
		configured = min(configured, t.MaxSlots)
	}
	return max(base, configured)
}

func (t CapacityTable) levelsFor(kind model.Kind) map[int]int {
	switch {
	case kind == model.Single && len(t.Single) > 0:
		return t.Single
	case kind == model.Double && len(t.Double) > 0:
		return t.Double
	}
	return t.Levels
}

// floor returns the value of the greatest key less than or equal to level.
func floor(levels map[int]int, level int) (int, bool) {
	keys := make([]int, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	i := sort.SearchInts(keys, level+1) - 1
	if i < 0 {
		return 0, false
	}
	return levels[keys[i]], true
}
