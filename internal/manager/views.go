package manager

import (
	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/model"
)

// OpenPage renders the requested page of r and registers the view.
// The returned view is a copy: use its handle to act on the registered one.
func (m *Manager) OpenPage(actor Actor, r *model.StorageRecord, page int) (*model.ViewHandle, error) {
	if !m.CanView(actor, r) {
		return nil, ErrAccessDenied
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	return m.open(r, page), nil
}

func (m *Manager) open(r *model.StorageRecord, page int) *model.ViewHandle {
	v := r.BuildView(page)
	v.Handle = uuid.Must(uuid.NewV4()).String()

	m.viewsMu.Lock()
	m.views[v.Handle] = v
	m.viewsMu.Unlock()

	m.saveRecord(r)
	return copyView(v)
}

// View returns a copy of the registered view.
func (m *Manager) View(handle string) (*model.ViewHandle, bool) {
	v, ok := m.lookup(handle)
	if !ok {
		return nil, false
	}

	unlock := m.lock(v.Record.Owner)
	defer unlock()

	return copyView(v), true
}

func (m *Manager) lookup(handle string) (*model.ViewHandle, bool) {
	m.viewsMu.Lock()
	defer m.viewsMu.Unlock()

	v, ok := m.views[handle]
	return v, ok
}

// ChangePage syncs the view back into its record then replaces it by the page at delta.
// Views of actors unable to modify the record are not synced.
func (m *Manager) ChangePage(actor Actor, handle string, delta int) (*model.ViewHandle, error) {
	v, ok := m.lookup(handle)
	if !ok {
		return nil, ErrUnknownView
	}
	r := v.Record
	if !m.CanView(actor, r) {
		return nil, ErrAccessDenied
	}
	modify := m.CanModify(actor, r)

	unlock := m.lock(r.Owner)
	defer unlock()

	if v, ok = m.lookup(handle); !ok {
		return nil, ErrUnknownView
	}
	if modify {
		r.SyncFromView(v)
		m.saveRecord(r)
	}
	m.CloseView(handle)
	return m.open(r, v.PageIndex+delta), nil
}

// SyncView copies the registered view back into its record, then runs the filter and the compression.
// Auto-sort is scheduled afterwards. It returns true if the filter or the compression changed the contents.
func (m *Manager) SyncView(actor Actor, handle string) (bool, error) {
	return m.UpdateView(actor, handle, nil)
}

// UpdateView replaces the unblocked slots of the registered view by grid then syncs it.
// A nil grid syncs the view as is. Stacks larger than their stack size are cut down
// and the excess is stored elsewhere in the record, the rest going through the deposit overflow policy.
func (m *Manager) UpdateView(actor Actor, handle string, grid []*model.ItemStack) (bool, error) {
	v, ok := m.lookup(handle)
	if !ok {
		return false, ErrUnknownView
	}
	r := v.Record
	if !m.CanModify(actor, r) {
		return false, ErrAccessDenied
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	if v, ok = m.lookup(handle); !ok {
		return false, ErrUnknownView
	}
	settings := m.settings()
	grid, excess := normalizeGrid(settings, grid)
	if grid != nil {
		v.SetGrid(grid)
	}
	r.SyncFromView(v)
	if len(excess) > 0 {
		m.overflow(actor, r, r.Contents.AddItem(excess...), settings.Deposit.Overflow)
	}

	filtered := m.enforceFilter(r, actor)
	compressed := m.applyCompression(r, actor)
	if filtered || compressed {
		r.MarkModified()
	}
	m.saveRecord(r)
	m.ScheduleAutoSort(r)
	m.refreshViews(r)

	return filtered || compressed, nil
}

// CloseView unregisters the view. It returns false when the handle is unknown.
func (m *Manager) CloseView(handle string) bool {
	m.viewsMu.Lock()
	defer m.viewsMu.Unlock()

	_, ok := m.views[handle]
	delete(m.views, handle)
	return ok
}

// refreshViews renders again every view of r. The owner's lock must be held.
func (m *Manager) refreshViews(r *model.StorageRecord) {
	m.viewsMu.Lock()
	defer m.viewsMu.Unlock()

	for handle, v := range m.views {
		if v.Record != r {
			continue
		}

		fresh := r.BuildView(v.PageIndex)
		fresh.Handle = handle
		m.views[handle] = fresh
	}
}

// closeViews unregisters every view of r.
func (m *Manager) closeViews(r *model.StorageRecord) {
	m.viewsMu.Lock()
	defer m.viewsMu.Unlock()

	for handle, v := range m.views {
		if v.Record == r {
			delete(m.views, handle)
		}
	}
}

func copyView(v *model.ViewHandle) *model.ViewHandle {
	c := *v
	c.Grid = make([]*model.ItemStack, len(v.Grid))
	for i, stack := range v.Grid {
		c.Grid[i] = stack.Clone()
	}
	c.Blocked = append([]int(nil), v.Blocked...)
	return &c
}
