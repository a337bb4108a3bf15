package manager

import (
	"sort"
	"strings"

	"github.com/mdouchement/chestlink/internal/model"
	"github.com/patrickmn/go-cache"
)

// Items are compressed nine to one.
const compressionRatio = 9

// ApplyCapacity grows r to the configured size of its capacity level.
// It returns true if r was resized. Capacity never shrinks.
func (m *Manager) ApplyCapacity(r *model.StorageRecord) bool {
	unlock := m.lock(r.Owner)
	defer unlock()

	return m.applyCapacity(r)
}

func (m *Manager) applyCapacity(r *model.StorageRecord) bool {
	if r == nil || r.Contents == nil {
		return false
	}

	current := r.Capacity()
	desired := m.settings().Capacity.SizeForLevel(r.UpgradeLevel(model.Capacity), r.Kind, current)
	if desired <= current {
		return false
	}

	if err := r.Contents.Resize(desired); err != nil {
		m.log.Errorf("Could not resize %s from %d to %d slots: %s", r.Key, current, desired, err)
		return false
	}
	r.MarkModified()
	return true
}

// EnforceFilter removes the stacks rejected by the filter of r and routes them through the filter overflow policy.
// It returns true if something was removed.
func (m *Manager) EnforceFilter(r *model.StorageRecord, actor Actor) bool {
	unlock := m.lock(r.Owner)
	defer unlock()

	return m.enforceFilter(r, actor)
}

func (m *Manager) enforceFilter(r *model.StorageRecord, actor Actor) bool {
	if r.UpgradeLevel(model.Filtering) <= 0 || r.Filter == nil {
		return false
	}

	contents := r.Contents.CopyContents()
	var rejected []*model.ItemStack
	for i, stack := range contents {
		if stack.IsEmpty() {
			continue
		}
		if !r.Filter.Allows(stack.Type) {
			rejected = append(rejected, stack)
			contents[i] = nil
		}
	}
	if len(rejected) == 0 {
		return false
	}

	r.Contents.SetContents(contents)
	r.MarkModified()
	m.overflow(actor, r, rejected, m.settings().Filter.Overflow)
	return true
}

// ApplyCompression crafts every configured recipe of r whose input reaches nine items.
// Consumed inputs are not given back when the outputs do not fit: the outputs go through the compression overflow policy.
// It returns true if something was crafted.
func (m *Manager) ApplyCompression(r *model.StorageRecord, actor Actor) bool {
	unlock := m.lock(r.Owner)
	defer unlock()

	return m.applyCompression(r, actor)
}

func (m *Manager) applyCompression(r *model.StorageRecord, actor Actor) bool {
	if r.UpgradeLevel(model.Compression) <= 0 {
		return false
	}

	settings := m.settings()
	if len(settings.Compression.Recipes) == 0 {
		return false
	}

	var changed bool
	var overflow []*model.ItemStack
	for _, recipe := range settings.Compression.Recipes {
		craftable := r.Contents.CountOf(recipe.Input) / compressionRatio
		if craftable <= 0 {
			continue
		}

		r.Contents.Consume(recipe.Input, craftable*compressionRatio)

		limit := max(1, settings.MaxStackSize(recipe.Output))
		for remaining := craftable; remaining > 0; {
			batch := min(limit, remaining)
			overflow = append(overflow, r.Contents.AddItem(settings.NewStack(recipe.Output, batch))...)
			remaining -= batch
		}
		changed = true
	}

	if changed {
		r.MarkModified()
	}
	if len(overflow) > 0 {
		m.overflow(actor, r, overflow, settings.Compression.Overflow)
	}
	return changed
}

// ScheduleAutoSort sorts r one tick later. Requests for a record already waiting for its sort are ignored.
// The sort is skipped when r was deleted or renumbered in the meantime.
func (m *Manager) ScheduleAutoSort(r *model.StorageRecord) bool {
	if r.UpgradeLevel(model.AutoSort) <= 0 {
		return false
	}
	if err := m.sorting.Add(r.Key, struct{}{}, cache.NoExpiration); err != nil {
		return false
	}

	task := func() {
		m.sorting.Delete(r.Key)

		unlock := m.lock(r.Owner)
		defer unlock()

		if !m.live(r) {
			return
		}
		if m.applyAutoSort(r) {
			m.saveRecord(r)
			m.refreshViews(r)
		}
	}

	if m.queue == nil {
		go task()
		return true
	}
	m.queue.Defer(task)
	return true
}

// ApplyAutoSort packs the stacks of r from the first slot, ordered by label, type then amount.
// It returns true if the contents changed.
func (m *Manager) ApplyAutoSort(r *model.StorageRecord) bool {
	unlock := m.lock(r.Owner)
	defer unlock()

	return m.applyAutoSort(r)
}

func (m *Manager) applyAutoSort(r *model.StorageRecord) bool {
	if r.UpgradeLevel(model.AutoSort) <= 0 {
		return false
	}

	contents := r.Contents.CopyContents()
	stacks := make([]*model.ItemStack, 0, len(contents))
	for _, stack := range contents {
		if !stack.IsEmpty() {
			stacks = append(stacks, stack)
		}
	}
	if len(stacks) == 0 {
		return false
	}

	sort.SliceStable(stacks, func(i, j int) bool {
		a, b := stacks[i], stacks[j]
		if la, lb := strings.ToLower(a.Label()), strings.ToLower(b.Label()); la != lb {
			return la < lb
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Amount < b.Amount
	})

	sorted := make([]*model.ItemStack, len(contents))
	copy(sorted, stacks)
	if sameContents(contents, sorted) {
		return false
	}

	r.Contents.SetContents(sorted)
	r.MarkModified()
	return true
}

func sameContents(a, b []*model.ItemStack) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		switch {
		case a[i].IsEmpty() && b[i].IsEmpty():
		case a[i].IsEmpty() || b[i].IsEmpty():
			return false
		case *a[i] != *b[i]:
			return false
		}
	}
	return true
}

//
// Overflow
//

// overflow routes items that could not stay in r.
// Deny cannot undo a completed insert, so it handles the items like Return.
func (m *Manager) overflow(actor Actor, r *model.StorageRecord, items []*model.ItemStack, policy model.OverflowPolicy) {
	if len(items) == 0 {
		return
	}

	switch policy {
	case model.Drop:
		m.drop(actor, r, items)
	default:
		m.giveBack(actor, r, items)
	}
	m.log.Debugf("%d stacks of %s overflowed (%s)", len(items), r.Key, policy)
}

func (m *Manager) giveBack(actor Actor, r *model.StorageRecord, items []*model.ItemStack) {
	if actor == nil {
		m.drop(nil, r, items)
		return
	}

	if leftovers := actor.Give(items...); len(leftovers) > 0 {
		m.drop(actor, r, leftovers)
	}
}

func (m *Manager) drop(actor Actor, r *model.StorageRecord, items []*model.ItemStack) {
	var at *model.Position
	if actor != nil {
		at = actor.Location()
	}
	if !at.IsValid() {
		at = r.Position
	}

	if m.host == nil {
		m.log.Warnf("No host to drop %d stacks of %s", len(items), r.Key)
		return
	}
	m.host.Drop(at, items)
}
