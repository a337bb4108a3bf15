package manager

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/model"
)

// Rename changes the name of r.
func (m *Manager) Rename(actor Actor, r *model.StorageRecord, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if !m.canManage(actor, r) {
		return ErrNotOwner
	}

	reg, err := m.registry(r.Owner)
	if err != nil {
		return err
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	r.Name = name
	r.MarkModified()
	m.save(reg)
	return nil
}

// BeginRename marks r as the record the next name sent by its owner applies to.
func (m *Manager) BeginRename(actor Actor, r *model.StorageRecord) error {
	if actor == nil || actor.ID() != r.Owner {
		return ErrNotOwner
	}

	reg, err := m.registry(r.Owner)
	if err != nil {
		return err
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	id := r.ID
	reg.PendingRename = &id
	return nil
}

// CompleteRename applies name to the record marked by BeginRename.
func (m *Manager) CompleteRename(actor Actor, name string) (*model.StorageRecord, error) {
	reg, err := m.registry(actor.ID())
	if err != nil {
		return nil, err
	}

	unlock := m.lock(actor.ID())
	var r *model.StorageRecord
	ok := reg.PendingRename != nil
	if ok {
		r, ok = reg.Get(*reg.PendingRename)
		reg.PendingRename = nil
	}
	unlock()

	if !ok {
		return nil, ErrNoPendingRename
	}
	return r, m.Rename(actor, r, name)
}

// Reset empties r without changing its capacity.
func (m *Manager) Reset(actor Actor, r *model.StorageRecord) error {
	if !m.canManage(actor, r) {
		return ErrNotOwner
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	r.Contents.Clear()
	r.MarkModified()
	m.saveRecord(r)
	m.refreshViews(r)
	return nil
}

// Delete unbinds r: its views are closed and its persisted file removed.
func (m *Manager) Delete(actor Actor, r *model.StorageRecord) error {
	if !m.canManage(actor, r) {
		return ErrNotOwner
	}

	reg, err := m.registry(r.Owner)
	if err != nil {
		return err
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	m.delete(reg, r)
	m.save(reg)
	return nil
}

func (m *Manager) delete(reg *model.OwnerRegistry, r *model.StorageRecord) {
	reg.Delete(r.ID)
	m.closeViews(r)
	if err := m.db.Delete(r.Key); err != nil {
		m.log.Errorf("Could not delete record %s: %s", r.Key, err)
	}
}

//
// Sharing
//

// Share grants level on r to grantee until expiresAt, forever when expiresAt is nil.
func (m *Manager) Share(actor Actor, r *model.StorageRecord, grantee uuid.UUID, level model.AccessLevel, expiresAt *time.Time) error {
	if !m.canManage(actor, r) {
		return ErrNotOwner
	}
	if grantee == r.Owner || grantee == uuid.Nil {
		return ErrShareSelf
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	r.SetSharedAccess(grantee, &model.SharedAccess{Level: level, ExpiresAt: expiresAt}, time.Now())
	r.MarkModified()
	m.saveRecord(r)
	return nil
}

// Unshare revokes the grant of grantee on r.
func (m *Manager) Unshare(actor Actor, r *model.StorageRecord, grantee uuid.UUID) error {
	if !m.canManage(actor, r) {
		return ErrNotOwner
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	r.SetSharedAccess(grantee, nil, time.Now())
	m.saveRecord(r)
	return nil
}

//
// Filter
//

func (m *Manager) filter(r *model.StorageRecord) *model.Filter {
	if r.Filter == nil {
		r.Filter = model.NewFilter(m.settings().Filter.DefaultMode)
	}
	return r.Filter
}

// SetFilterMode switches the filter of r to mode.
func (m *Manager) SetFilterMode(actor Actor, r *model.StorageRecord, mode model.FilterMode) error {
	if !m.canManage(actor, r) {
		return ErrNotOwner
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	m.filter(r).Mode = mode
	r.MarkModified()
	m.saveRecord(r)
	return nil
}

// AddFilterEntry lists t in the filter of r. It returns false when t is already listed.
func (m *Manager) AddFilterEntry(actor Actor, r *model.StorageRecord, t model.ItemType) (bool, error) {
	if !m.canManage(actor, r) {
		return false, ErrNotOwner
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	f := m.filter(r)
	if f.Contains(t) {
		return false, nil
	}
	if !f.Add(t, m.settings().Filter.MaxEntries) {
		return false, ErrFilterFull
	}
	r.MarkModified()
	m.saveRecord(r)
	return true, nil
}

// RemoveFilterEntry unlists t from the filter of r. It returns false when t was not listed.
func (m *Manager) RemoveFilterEntry(actor Actor, r *model.StorageRecord, t model.ItemType) (bool, error) {
	if !m.canManage(actor, r) {
		return false, ErrNotOwner
	}

	unlock := m.lock(r.Owner)
	defer unlock()

	if !m.filter(r).Remove(t) {
		return false, nil
	}
	r.MarkModified()
	m.saveRecord(r)
	return true, nil
}
