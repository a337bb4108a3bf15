package manager

import (
	"github.com/mdouchement/chestlink/internal/config"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/pkg/errors"
)

// PermissionUpgrade is the permission prefix required to buy an upgrade kind.
const PermissionUpgrade = "chestlink.upgrades."

// PurchaseUpgrade buys the next level of kind on r for its owner and returns the new level.
// Capacity upgrades resize r immediately, auto-sort and compression upgrades run once.
func (m *Manager) PurchaseUpgrade(actor Actor, r *model.StorageRecord, kind model.UpgradeKind) (int, error) {
	if actor == nil || actor.ID() != r.Owner {
		return 0, ErrNotOwner
	}

	settings := m.settings()
	if !settings.IsEnabled(kind) {
		return 0, ErrUpgradeDisabled
	}
	if !actor.HasPermission(PermissionUpgrade + string(kind)) {
		return 0, ErrAccessDenied
	}

	reg, err := m.registry(r.Owner)
	if err != nil {
		return 0, err
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	level := r.UpgradeLevel(kind)
	if level >= kind.MaxLevel() {
		return 0, ErrMaxLevel
	}
	if err = m.checkLimits(actor, reg, settings.Limits, kind, level); err != nil {
		return 0, err
	}

	if err = m.pay(actor, settings.Cost(kind, level+1)); err != nil {
		return 0, err
	}

	r.SetUpgradeLevel(kind, level+1)
	switch kind {
	case model.Capacity:
		m.applyCapacity(r)
	case model.AutoSort:
		m.applyAutoSort(r)
	case model.Compression:
		m.applyCompression(r, actor)
	}

	m.saveRecord(r)
	m.save(reg)
	m.refreshViews(r)

	m.log.Infof("%s upgraded %s of %s to level %d", actor.Name(), kind, r.Key, level+1)
	return level + 1, nil
}

func (m *Manager) checkLimits(actor Actor, reg *model.OwnerRegistry, limits config.LimitSettings, kind model.UpgradeKind, level int) error {
	if !limits.Enabled || limits.CanBypass(actor) {
		return nil
	}

	if limit := limits.MaxLevel(actor, kind); limit > 0 && level >= limit {
		return errors.Wrapf(ErrLimitReached, "%s is limited to level %d", kind, limit)
	}

	if limit := limits.MaxUpgradedChests(actor); limit > 0 && level == 0 {
		var unlocked int
		for _, r := range reg.Records() {
			if r.UpgradeLevel(kind) > 0 {
				unlocked++
			}
		}
		if unlocked >= limit {
			return errors.Wrapf(ErrLimitReached, "%s is limited to %d records", kind, limit)
		}
	}
	return nil
}

// pay checks every part of the cost before taking any of them.
// A missing economy bridge means economy costs cannot be paid.
func (m *Manager) pay(actor Actor, cost config.Cost) error {
	if cost.IsFree() {
		return nil
	}

	xp, _ := actor.(XPPayer)
	items, _ := actor.(ItemPayer)

	if cost.HasEconomy() {
		if m.economy == nil {
			return errors.Wrap(ErrCannotPay, "economy unavailable")
		}
		if !m.economy.Has(actor.ID(), cost.Economy) {
			return errors.Wrapf(ErrCannotPay, "%.2f required, balance is %.2f", cost.Economy, m.economy.Balance(actor.ID()))
		}
	}
	if cost.HasXP() && (xp == nil || xp.XPLevels() < cost.XPLevels) {
		return errors.Wrapf(ErrCannotPay, "%d xp levels required", cost.XPLevels)
	}
	if cost.HasItems() {
		if items == nil {
			return errors.Wrap(ErrCannotPay, "items required")
		}
		for _, item := range cost.Items {
			if items.CountOf(item.Type) < item.Amount {
				return errors.Wrapf(ErrCannotPay, "%dx %s required", item.Amount, item.Type)
			}
		}
	}

	if cost.HasEconomy() && !m.economy.Withdraw(actor.ID(), cost.Economy) {
		return errors.Wrap(ErrCannotPay, "withdraw refused")
	}
	if cost.HasXP() {
		xp.TakeXPLevels(cost.XPLevels)
	}
	for _, item := range cost.Items {
		items.Consume(item.Type, item.Amount)
	}
	return nil
}
