package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// A StorageRecord is a physical container bound to a virtual storage.
type StorageRecord struct {
	Key            string
	ID             int
	Owner          uuid.UUID
	Name           string
	Kind           Kind
	Position       *Position
	CreatedAt      time.Time
	LastAccessedAt time.Time
	LastModifiedAt time.Time
	Contents       *ItemSlots
	Upgrades       UpgradeLevels
	Filter         *Filter

	shared map[uuid.UUID]SharedAccess
}

// StorageKey derives the globally unique key of the record id owned by owner.
func StorageKey(owner uuid.UUID, id int) string {
	return owner.String() + "-" + strconv.Itoa(id)
}

// ParseStorageKey splits a storage key into its owner and id.
func ParseStorageKey(key string) (uuid.UUID, int, error) {
	i := strings.LastIndex(key, "-")
	if i < 0 {
		return uuid.Nil, 0, errors.Errorf("malformed storage key %q", key)
	}

	owner, err := uuid.FromString(key[:i])
	if err != nil {
		return uuid.Nil, 0, errors.Wrapf(err, "malformed storage key %q", key)
	}
	id, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return uuid.Nil, 0, errors.Wrapf(err, "malformed storage key %q", key)
	}
	return owner, id, nil
}

// NewStorageRecord returns an empty record of the kind's base capacity.
func NewStorageRecord(owner uuid.UUID, id int, name string, kind Kind, position *Position, now time.Time) *StorageRecord {
	return &StorageRecord{
		Key:            StorageKey(owner, id),
		ID:             id,
		Owner:          owner,
		Name:           name,
		Kind:           kind,
		Position:       position,
		CreatedAt:      now,
		LastAccessedAt: now,
		LastModifiedAt: now,
		Contents:       NewItemSlots(kind.BaseCapacity(), nil),
		Upgrades:       UpgradeLevels{},
		Filter:         NewFilter(Whitelist),
		shared:         map[uuid.UUID]SharedAccess{},
	}
}

// Capacity returns the number of storage slots.
func (r *StorageRecord) Capacity() int {
	return r.Contents.Capacity()
}

// MarkAccessed bumps the access timestamp.
func (r *StorageRecord) MarkAccessed() {
	r.LastAccessedAt = time.Now()
}

// MarkModified bumps both the modification and access timestamps.
func (r *StorageRecord) MarkModified() {
	r.LastModifiedAt = time.Now()
	r.LastAccessedAt = r.LastModifiedAt
}

// UpgradeLevel returns the level of the upgrade k.
func (r *StorageRecord) UpgradeLevel(k UpgradeKind) int {
	return r.Upgrades.Level(k)
}

// SetUpgradeLevel stores the level of the upgrade k.
func (r *StorageRecord) SetUpgradeLevel(k UpgradeKind, level int) {
	r.Upgrades.Set(k, level)
	r.MarkModified()
}

// Matches returns true if p references this record.
// Both halves of a double container resolve to the same record.
func (r *StorageRecord) Matches(p *Position) bool {
	if !p.IsValid() || !r.Position.IsValid() {
		return false
	}
	if *p == *r.Position {
		return true
	}
	return r.Kind == Double && r.Position.Adjacent(*p)
}

//
// Sharing
//

// Shared returns a copy of the live grants, expired ones are pruned first.
func (r *StorageRecord) Shared(now time.Time) map[uuid.UUID]SharedAccess {
	r.PruneExpired(now)

	shared := make(map[uuid.UUID]SharedAccess, len(r.shared))
	for k, v := range r.shared {
		shared[k] = v
	}
	return shared
}

// SetSharedAccess grants access to grantee, or revokes it when access is nil.
func (r *StorageRecord) SetSharedAccess(grantee uuid.UUID, access *SharedAccess, now time.Time) {
	if r.shared == nil {
		r.shared = map[uuid.UUID]SharedAccess{}
	}

	if access == nil {
		delete(r.shared, grantee)
	} else {
		r.shared[grantee] = *access
	}
	r.PruneExpired(now)
}

// PruneExpired removes the grants expired at now and returns how many were removed.
func (r *StorageRecord) PruneExpired(now time.Time) int {
	var removed int
	for grantee, access := range r.shared {
		if access.IsExpired(now) {
			delete(r.shared, grantee)
			removed++
		}
	}
	return removed
}

// CanView returns true if id is the owner or holds a live grant.
func (r *StorageRecord) CanView(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	if id == r.Owner {
		return true
	}

	access, ok := r.shared[id]
	return ok && !access.IsExpired(time.Now())
}

// CanModify returns true if id is the owner or holds a live Modify grant.
func (r *StorageRecord) CanModify(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	if id == r.Owner {
		return true
	}

	access, ok := r.shared[id]
	return ok && !access.IsExpired(time.Now()) && access.Level == Modify
}

//
// Views
//

// Paginate returns the page layout of the record's contents.
func (r *StorageRecord) Paginate() []PageDefinition {
	return Paginate(r.Capacity(), r.Kind.BaseCapacity())
}

// PageCount returns the number of pages of the record.
func (r *StorageRecord) PageCount() int {
	return len(r.Paginate())
}

// BuildView renders the requested page, clamped to the existing pages.
func (r *StorageRecord) BuildView(requested int) *ViewHandle {
	pages := r.Paginate()
	index := max(0, min(requested, len(pages)-1))
	def := pages[index]

	grid := make([]*ItemStack, def.ViewSize)
	ptr := def.StorageStart
	end := def.StorageStart + def.StorageLen
	for slot := 0; slot < def.ViewSize && ptr < end; slot++ {
		if def.IsBlocked(slot) {
			continue
		}
		grid[slot] = r.Contents.Get(ptr)
		ptr++
	}

	for _, slot := range def.Blocked {
		grid[slot] = NewItemStack(IconFiller, 1)
	}
	if def.PrevSlot != NoSlot {
		grid[def.PrevSlot] = NewItemStack(IconPrevious, 1)
	}
	if def.InfoSlot != NoSlot {
		grid[def.InfoSlot] = NewItemStack(IconInfo, 1)
	}
	if def.NextSlot != NoSlot {
		grid[def.NextSlot] = NewItemStack(IconNext, 1)
	}

	r.MarkAccessed()
	return &ViewHandle{
		Record:    r,
		PageIndex: index,
		PageCount: len(pages),
		Grid:      grid,
		Blocked:   append([]int(nil), def.Blocked...),
		PrevSlot:  def.PrevSlot,
		InfoSlot:  def.InfoSlot,
		NextSlot:  def.NextSlot,
		page:      def,
	}
}

// SyncFromView copies the unblocked slots of the view back into the storage range of its page.
// Other storage slots are left untouched.
func (r *StorageRecord) SyncFromView(v *ViewHandle) {
	if v == nil {
		return
	}

	pages := r.Paginate()
	def := pages[max(0, min(v.PageIndex, len(pages)-1))]

	contents := r.Contents.CopyContents()
	ptr := def.StorageStart
	end := def.StorageStart + def.StorageLen
	for slot := 0; slot < def.ViewSize && ptr < end; slot++ {
		if def.IsBlocked(slot) {
			continue
		}
		contents[ptr] = nil
		if slot < len(v.Grid) && !v.Grid[slot].IsIcon() {
			contents[ptr] = v.Grid[slot]
		}
		ptr++
	}

	r.Contents.SetContents(contents)
	r.MarkModified()
}

// Clone returns a deep copy of the record under a new id.
func (r *StorageRecord) Clone(id int) *StorageRecord {
	c := *r
	c.ID = id
	c.Key = StorageKey(r.Owner, id)
	if r.Contents != nil {
		c.Contents = NewItemSlots(r.Capacity(), r.Contents.CopyContents())
	}
	c.Upgrades = r.Upgrades.Copy()
	c.Filter = r.Filter.Copy()
	if r.Position != nil {
		p := *r.Position
		c.Position = &p
	}
	c.shared = make(map[uuid.UUID]SharedAccess, len(r.shared))
	for k, v := range r.shared {
		c.shared[k] = v
	}
	return &c
}
