package manager

import (
	"github.com/mdouchement/chestlink/internal/config"
	"github.com/mdouchement/chestlink/internal/model"
)

// Deposit moves stack into r and returns the amount stored.
// With a Deny deposit overflow, a stack that does not fully fit is refused with ErrRecordFull and nothing is stored.
// Otherwise the leftovers go through the deposit overflow policy.
// The filter and the compression run afterwards and auto-sort is scheduled when the contents changed.
func (m *Manager) Deposit(actor Actor, r *model.StorageRecord, stack *model.ItemStack) (int, error) {
	if !m.CanModify(actor, r) {
		return 0, ErrAccessDenied
	}
	if stack.IsEmpty() || stack.IsIcon() {
		return 0, nil
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	settings := m.settings()
	policy := settings.Deposit.Overflow
	stack = normalize(settings, stack)

	if policy == model.Deny && !r.Contents.CanFullyStore(stack) {
		return 0, ErrRecordFull
	}

	leftovers := r.Contents.AddItem(stack)
	moved := stack.Amount - amountOf(leftovers)
	changed := moved > 0
	if changed {
		r.MarkModified()
	}
	m.overflow(actor, r, leftovers, policy)

	if m.enforceFilter(r, actor) {
		changed = true
	}
	if m.applyCompression(r, actor) {
		changed = true
	}
	if changed {
		m.saveRecord(r)
		m.ScheduleAutoSort(r)
		m.refreshViews(r)
	}

	m.log.Debugf("Deposited %d/%d %s in %s", moved, stack.Amount, stack.Type, r.Key)
	return moved, nil
}

// normalizeGrid sizes the stacks of grid from the settings.
// Amounts above the stack size are cut down and returned as excess.
func normalizeGrid(settings *config.Settings, grid []*model.ItemStack) ([]*model.ItemStack, []*model.ItemStack) {
	if grid == nil {
		return nil, nil
	}

	var excess []*model.ItemStack
	normalized := make([]*model.ItemStack, len(grid))
	for i, stack := range grid {
		if stack.IsEmpty() {
			continue
		}
		if stack.IsIcon() {
			normalized[i] = stack.Clone()
			continue
		}

		stack = normalize(settings, stack)
		if limit := stack.MaxStack(); stack.Amount > limit {
			excess = append(excess, stack.WithAmount(stack.Amount-limit))
			stack.Amount = limit
		}
		normalized[i] = stack
	}
	return normalized, excess
}

// normalize returns a copy of stack using the configured stack size of its type.
func normalize(settings *config.Settings, stack *model.ItemStack) *model.ItemStack {
	n := settings.NewStack(stack.Type, stack.Amount)
	n.DisplayName = stack.DisplayName
	return n
}

func amountOf(stacks []*model.ItemStack) int {
	var n int
	for _, stack := range stacks {
		if !stack.IsEmpty() {
			n += stack.Amount
		}
	}
	return n
}
