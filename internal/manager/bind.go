package manager

import (
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/patrickmn/go-cache"
)

// StartBind remembers that owner wants to bind the next container it selects.
// The pending bind expires after the configured TTL.
func (m *Manager) StartBind(owner uuid.UUID, name string, kind model.Kind) {
	m.pending.Set(owner.String(), model.PendingBind{
		Name: strings.TrimSpace(name),
		Kind: kind,
	}, cache.DefaultExpiration)
}

// PendingBind returns the pending bind of owner.
func (m *Manager) PendingBind(owner uuid.UUID) (model.PendingBind, bool) {
	v, ok := m.pending.Get(owner.String())
	if !ok {
		return model.PendingBind{}, false
	}
	return v.(model.PendingBind), true
}

// ClearPending forgets the pending bind of owner.
func (m *Manager) ClearPending(owner uuid.UUID) {
	m.pending.Delete(owner.String())
}

// FinalizeBind consumes the pending bind of the actor and binds a new record at p.
// Without a pending bind nothing is bound and ErrNoPendingBind is returned.
func (m *Manager) FinalizeBind(actor Actor, p *model.Position) (*model.StorageRecord, error) {
	owner := actor.ID()

	bind, ok := m.PendingBind(owner)
	if !ok {
		return nil, ErrNoPendingBind
	}
	if !p.IsValid() {
		return nil, ErrInvalidPosition
	}

	reg, err := m.Registry(owner)
	if err != nil {
		return nil, err
	}

	unlock := m.lock(owner)
	defer unlock()

	for _, r := range reg.Records() {
		if r.Matches(p) {
			return nil, ErrAlreadyBound
		}
	}

	name := bind.Name
	if name == "" {
		name = "Chest " + strconv.Itoa(reg.Len()+1)
	}
	if reg.OwnerName == "" {
		reg.OwnerName = actor.Name()
	}

	position := *p
	r := reg.CreateRecord(name, bind.Kind, &position)
	m.ClearPending(owner)
	m.save(reg)

	m.log.Infof("%s bound %s #%d at %s", actor.Name(), r.Kind, r.ID, position)
	return r, nil
}

// CanCreate returns true if owner holds fewer than limit records of the kind.
func (m *Manager) CanCreate(owner uuid.UUID, kind model.Kind, limit int) (bool, error) {
	reg, err := m.Registry(owner)
	if err != nil {
		return false, err
	}

	unlock := m.lock(owner)
	defer unlock()

	return reg.CountByKind(kind) < limit, nil
}
