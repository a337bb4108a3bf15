package config

import (
	"strings"

	"github.com/mdouchement/chestlink/internal/model"
)

// A Permissible can be checked against permission nodes.
type Permissible interface {
	HasPermission(permission string) bool
}

type (
	// LimitSettings gates upgrades by permission-backed ranks.
	LimitSettings struct {
		Enabled bool
		Ranks   []Rank
	}

	// A Rank bounds what its holders may upgrade.
	// A negative limit is unbounded.
	Rank struct {
		Key               string
		Permission        string
		Bypass            bool
		MaxUpgradedChests int
		MaxLevels         map[model.UpgradeKind]int
	}
)

// CanBypass returns true if p is not subject to limits.
func (l LimitSettings) CanBypass(p Permissible) bool {
	if !l.Enabled {
		return true
	}
	rank, ok := l.match(p)
	return ok && rank.Bypass
}

// MaxUpgradedChests returns how many records p may upgrade, -1 when unbounded.
func (l LimitSettings) MaxUpgradedChests(p Permissible) int {
	rank, ok := l.match(p)
	if !ok {
		return -1
	}
	return rank.MaxUpgradedChests
}

// MaxLevel returns the highest level of kind p may reach, -1 when unbounded.
func (l LimitSettings) MaxLevel(p Permissible, kind model.UpgradeKind) int {
	rank, ok := l.match(p)
	if !ok {
		return -1
	}
	if level, ok := rank.MaxLevels[kind]; ok {
		return level
	}
	return -1
}

// match returns the first rank whose permission p holds, or the first permission-less rank.
func (l LimitSettings) match(p Permissible) (Rank, bool) {
	if !l.Enabled || p == nil {
		return Rank{}, false
	}

	var fallback *Rank
	for i, rank := range l.Ranks {
		if strings.TrimSpace(rank.Permission) == "" {
			if fallback == nil {
				fallback = &l.Ranks[i]
			}
			continue
		}
		if p.HasPermission(rank.Permission) {
			return rank, true
		}
	}

	if fallback == nil {
		return Rank{}, false
	}
	return *fallback, true
}
