package config

import (
	"strings"

	"github.com/mdouchement/chestlink/internal/model"
)

// A CostType tells which currencies an upgrade level is paid with.
type CostType int

const (
	// Economy is paid with money through the economy bridge.
	Economy CostType = iota
	// XP is paid with experience levels.
	XP
	// Items is paid with items from the actor's inventory.
	Items
	// Mixed combines the three above.
	Mixed
)

// ParseCostType parses raw, defaulting to Economy.
func ParseCostType(raw string) CostType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "xp", "exp", "experience":
		return XP
	case "items", "item":
		return Items
	case "mixed":
		return Mixed
	}
	return Economy
}

func (t CostType) String() string {
	switch t {
	case XP:
		return "xp"
	case Items:
		return "items"
	case Mixed:
		return "mixed"
	}
	return "economy"
}

// An ItemCost is an amount of items taken from the actor.
type ItemCost struct {
	Type   model.ItemType
	Amount int
}

// A Cost is the price of one upgrade level.
type Cost struct {
	Type     CostType
	Economy  float64
	XPLevels int
	Items    []ItemCost
}

// HasEconomy returns true if money is required.
func (c Cost) HasEconomy() bool {
	return c.Economy > 0
}

// HasXP returns true if experience levels are required.
func (c Cost) HasXP() bool {
	return c.XPLevels > 0
}

// HasItems returns true if items are required.
func (c Cost) HasItems() bool {
	return len(c.Items) > 0
}

// IsFree returns true if nothing is required.
func (c Cost) IsFree() bool {
	return !c.HasEconomy() && !c.HasXP() && !c.HasItems()
}
