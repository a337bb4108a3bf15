package manager

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/model"
)

// CanView returns true if the actor may look at r.
func (m *Manager) CanView(actor Actor, r *model.StorageRecord) bool {
	if actor == nil || r == nil {
		return false
	}
	if actor.HasPermission(PermissionAdmin) {
		return true
	}
	return r.CanView(actor.ID())
}

// CanModify returns true if the actor may change the contents of r.
func (m *Manager) CanModify(actor Actor, r *model.StorageRecord) bool {
	if actor == nil || r == nil {
		return false
	}
	if m.IsReadOnly(actor.ID()) {
		return false
	}
	if actor.HasPermission(PermissionAdmin) {
		return true
	}
	return r.CanModify(actor.ID())
}

// canManage returns true if the actor may rename, share, delete or configure r.
func (m *Manager) canManage(actor Actor, r *model.StorageRecord) bool {
	if actor == nil || r == nil {
		return false
	}
	return actor.ID() == r.Owner || actor.HasPermission(PermissionAdmin)
}

// OwnedRecords returns the records of owner ordered by id.
func (m *Manager) OwnedRecords(owner uuid.UUID) ([]*model.StorageRecord, error) {
	reg, err := m.Registry(owner)
	if err != nil {
		return nil, err
	}

	unlock := m.lock(owner)
	defer unlock()

	return reg.Records(), nil
}

// sharedRecords returns the records of other owners holding a live grant for grantee.
// The returned records are the cached instances of their owner's registry.
func (m *Manager) sharedRecords(grantee uuid.UUID) ([]*model.StorageRecord, error) {
	found, err := m.db.LoadSharedTo(grantee)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var records []*model.StorageRecord
	for _, f := range found {
		if f.Owner == grantee {
			continue
		}

		reg, err := m.registry(f.Owner)
		if err != nil {
			m.log.Errorf("Skipping shared record %s: %s", f.Key, err)
			continue
		}

		unlock := m.lock(f.Owner)
		r, ok := reg.Get(f.ID)
		if ok {
			m.heal(r, now)
			ok = r.CanView(grantee)
		}
		unlock()

		if ok {
			records = append(records, r)
		}
	}
	return records, nil
}

// AccessibleRecords returns the records owned by or shared to owner, ordered by id.
func (m *Manager) AccessibleRecords(owner uuid.UUID) ([]*model.StorageRecord, error) {
	records, err := m.OwnedRecords(owner)
	if err != nil {
		return nil, err
	}

	shared, err := m.sharedRecords(owner)
	if err != nil {
		return nil, err
	}

	records = append(records, shared...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// OwnedRecord resolves input as an id or a name among the records of owner.
func (m *Manager) OwnedRecord(owner uuid.UUID, input string) (*model.StorageRecord, bool, error) {
	reg, err := m.Registry(owner)
	if err != nil {
		return nil, false, err
	}

	unlock := m.lock(owner)
	defer unlock()

	r, ok := reg.GetByIDOrName(input)
	return r, ok, nil
}

// AccessibleRecord resolves input among the records accessible to owner.
// Owned records win over shared ones.
func (m *Manager) AccessibleRecord(owner uuid.UUID, input string) (*model.StorageRecord, bool, error) {
	r, ok, err := m.OwnedRecord(owner, input)
	if err != nil || ok {
		return r, ok, err
	}

	shared, err := m.sharedRecords(owner)
	if err != nil {
		return nil, false, err
	}
	sort.SliceStable(shared, func(i, j int) bool {
		return shared[i].ID < shared[j].ID
	})

	input = strings.TrimSpace(input)
	for _, r := range shared {
		if strconv.Itoa(r.ID) == input || strings.EqualFold(r.Name, input) {
			return r, true, nil
		}
	}
	return nil, false, nil
}

// RecordAt returns the record accessible to owner bound at p.
// Both halves of a double container resolve to the same record.
func (m *Manager) RecordAt(owner uuid.UUID, p *model.Position) (*model.StorageRecord, bool, error) {
	if !p.IsValid() {
		return nil, false, nil
	}

	records, err := m.AccessibleRecords(owner)
	if err != nil {
		return nil, false, err
	}

	for _, r := range records {
		if r.Matches(p) {
			return r, true, nil
		}
	}
	return nil, false, nil
}
