package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// An OwnerRegistry holds all the records of an owner.
type OwnerRegistry struct {
	Owner         uuid.UUID
	OwnerName     string
	NextID        int
	PendingRename *int

	records map[int]*StorageRecord
}

// A PendingBind is a bind started by an owner and waiting for a position.
type PendingBind struct {
	Name string
	Kind Kind
}

// NewOwnerRegistry returns an empty registry.
func NewOwnerRegistry(owner uuid.UUID) *OwnerRegistry {
	return &OwnerRegistry{
		Owner:   owner,
		NextID:  1,
		records: map[int]*StorageRecord{},
	}
}

// Len returns the number of records.
func (o *OwnerRegistry) Len() int {
	return len(o.records)
}

// Records returns the records ordered by id.
func (o *OwnerRegistry) Records() []*StorageRecord {
	records := make([]*StorageRecord, 0, len(o.records))
	for _, r := range o.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records
}

// Get returns the record id.
func (o *OwnerRegistry) Get(id int) (*StorageRecord, bool) {
	r, ok := o.records[id]
	return r, ok
}

// GetByIDOrName resolves input as an id when numeric, otherwise as a case-insensitive name.
// When several records share the name, the lowest id wins.
func (o *OwnerRegistry) GetByIDOrName(input string) (*StorageRecord, bool) {
	if id, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
		return o.Get(id)
	}

	for _, r := range o.Records() {
		if strings.EqualFold(r.Name, input) {
			return r, true
		}
	}
	return nil, false
}

// CreateRecord binds a new record with the next id.
func (o *OwnerRegistry) CreateRecord(name string, kind Kind, position *Position) *StorageRecord {
	id := o.NextID
	o.NextID++

	r := NewStorageRecord(o.Owner, id, name, kind, position, time.Now())
	o.records[id] = r
	return r
}

// Add registers an existing record, keeping NextID above every id.
func (o *OwnerRegistry) Add(r *StorageRecord) {
	o.records[r.ID] = r
	o.NextID = max(o.NextID, r.ID+1)
}

// Delete removes the record id. Ids are never reused.
func (o *OwnerRegistry) Delete(id int) bool {
	_, ok := o.records[id]
	delete(o.records, id)
	return ok
}

// CountByKind returns the number of records of the given kind.
func (o *OwnerRegistry) CountByKind(kind Kind) int {
	var n int
	for _, r := range o.records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// PurgeBroken removes the records without a valid position or contents.
func (o *OwnerRegistry) PurgeBroken() []*StorageRecord {
	var removed []*StorageRecord
	for _, r := range o.Records() {
		if !r.Position.IsValid() || r.Contents == nil {
			delete(o.records, r.ID)
			removed = append(removed, r)
		}
	}
	return removed
}

// Reindex renumbers the records 1..N following their current id order.
// It returns the storage keys that no longer exist.
func (o *OwnerRegistry) Reindex() []string {
	all := o.Records()
	o.records = make(map[int]*StorageRecord, len(all))

	for i, r := range all {
		id := i + 1
		o.records[id] = r.Clone(id)
	}

	var stale []string
	for _, r := range all {
		if _, ok := o.records[r.ID]; !ok {
			stale = append(stale, r.Key)
		}
	}

	o.NextID = len(all) + 1
	o.PendingRename = nil
	return stale
}
