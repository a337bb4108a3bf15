package model

import (
	"sort"
	"strings"
)

// An UpgradeKind identifies a per-record upgrade.
type UpgradeKind string

// Known upgrade kinds.
const (
	Capacity    UpgradeKind = "capacity"
	AutoSort    UpgradeKind = "auto_sort"
	Filtering   UpgradeKind = "filter"
	Compression UpgradeKind = "compression"
)

// UpgradeKinds lists the known upgrade kinds.
var UpgradeKinds = []UpgradeKind{Capacity, AutoSort, Filtering, Compression}

var upgradeMaxLevels = map[UpgradeKind]int{
	Capacity:    3,
	AutoSort:    1,
	Filtering:   1,
	Compression: 1,
}

var upgradeDisplayNames = map[UpgradeKind]string{
	Capacity:    "Capacity",
	AutoSort:    "Auto-Sort",
	Filtering:   "Auto-Filter",
	Compression: "Compression",
}

// ParseUpgradeKind parses an upgrade key. Dashes and the "sorting" alias are accepted.
func ParseUpgradeKind(key string) (UpgradeKind, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
	if normalized == "sorting" {
		normalized = string(AutoSort)
	}

	k := UpgradeKind(normalized)
	_, ok := upgradeMaxLevels[k]
	return k, ok
}

// MaxLevel returns the highest level of the upgrade.
func (k UpgradeKind) MaxLevel() int {
	return upgradeMaxLevels[k]
}

// DisplayName returns the human name of the upgrade.
func (k UpgradeKind) DisplayName() string {
	return upgradeDisplayNames[k]
}

// UpgradeLevels holds the level of each upgrade of a record.
// A missing kind is level 0.
type UpgradeLevels map[UpgradeKind]int

// Level returns the level of k.
func (u UpgradeLevels) Level(k UpgradeKind) int {
	return u[k]
}

// Set stores the level of k, capped to [0, k.MaxLevel()].
func (u UpgradeLevels) Set(k UpgradeKind, level int) {
	capped := max(0, min(level, k.MaxLevel()))
	if capped == 0 {
		delete(u, k)
		return
	}
	u[k] = capped
}

// Copy returns a copy of the levels.
func (u UpgradeLevels) Copy() UpgradeLevels {
	c := make(UpgradeLevels, len(u))
	for k, v := range u {
		c[k] = v
	}
	return c
}

// Kinds returns the unlocked kinds in a stable order.
func (u UpgradeLevels) Kinds() []UpgradeKind {
	kinds := make([]UpgradeKind, 0, len(u))
	for k := range u {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return kinds[i] < kinds[j]
	})
	return kinds
}
