package database

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/asdine/storm/v3/codec/gob"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
)

type (
	// A RecordDocument is the persisted form of a storage record.
	RecordDocument struct {
		Number       FlexInt                   `json:"id"`
		StorageKey   string                    `json:"storageKey" storm:"id"`
		Owner        string                    `json:"owner" storm:"index"`
		Name         string                    `json:"name"`
		Type         string                    `json:"type"`
		Created      int64                     `json:"created"`
		LastAccessed int64                     `json:"lastAccessed"`
		LastModified int64                     `json:"lastModified"`
		Location     *LocationDocument         `json:"location,omitempty"`
		Shared       map[string]SharedDocument `json:"shared"`
		Upgrades     map[string]int            `json:"upgrades"`
		Filter       *FilterDocument           `json:"filter,omitempty"`
		Contents     string                    `json:"contents"`
	}

	// A LocationDocument is the persisted form of a position.
	LocationDocument struct {
		World string `json:"world"`
		X     int    `json:"x"`
		Y     int    `json:"y"`
		Z     int    `json:"z"`
	}

	// A SharedDocument is the persisted form of a grant. Expires is in epoch milliseconds.
	SharedDocument struct {
		Access  string `json:"access"`
		Expires *int64 `json:"expires"`
	}

	// A FilterDocument is the persisted form of a filter.
	FilterDocument struct {
		Mode  string   `json:"mode"`
		Items []string `json:"items"`
	}

	// An OwnerDocument is the index of an owner's records.
	// UUID and Inventories are the field names of older indexes.
	OwnerDocument struct {
		OwnerID     string   `json:"ownerId" storm:"id"`
		OwnerName   string   `json:"ownerName,omitempty"`
		NextID      int      `json:"nextId,omitempty"`
		Names       []string `json:"names"`
		StorageKeys []string `json:"storageKeys"`

		UUID        string   `json:"uuid,omitempty"`
		Inventories []string `json:"inventories,omitempty"`
	}
)

// A FlexInt decodes from a JSON number or a numeric string and encodes as a string.
type FlexInt int

// MarshalJSON implements json.Marshaler.
func (i FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(i)))
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*i = 0
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return errors.Wrap(err, "invalid id")
	}
	*i = FlexInt(n)
	return nil
}

func (d *OwnerDocument) owner() string {
	if d.OwnerID != "" {
		return d.OwnerID
	}
	return d.UUID
}

func (d *OwnerDocument) keys() []string {
	if len(d.StorageKeys) > 0 {
		return d.StorageKeys
	}
	return d.Inventories
}

//
// Encoding
//

func encodeOwner(reg *model.OwnerRegistry) *OwnerDocument {
	records := reg.Records()

	doc := &OwnerDocument{
		OwnerID:     reg.Owner.String(),
		OwnerName:   reg.OwnerName,
		NextID:      reg.NextID,
		Names:       make([]string, 0, len(records)),
		StorageKeys: make([]string, 0, len(records)),
	}
	for _, r := range records {
		doc.Names = append(doc.Names, r.Name)
		doc.StorageKeys = append(doc.StorageKeys, r.Key)
	}
	return doc
}

func encodeRecord(r *model.StorageRecord) (*RecordDocument, error) {
	contents, err := encodeContents(r.Contents)
	if err != nil {
		return nil, err
	}

	doc := &RecordDocument{
		Number:       FlexInt(r.ID),
		StorageKey:   r.Key,
		Owner:        r.Owner.String(),
		Name:         r.Name,
		Type:         r.Kind.String(),
		Created:      r.CreatedAt.UnixMilli(),
		LastAccessed: r.LastAccessedAt.UnixMilli(),
		LastModified: r.LastModifiedAt.UnixMilli(),
		Shared:       map[string]SharedDocument{},
		Upgrades:     map[string]int{},
		Contents:     contents,
	}

	if r.Position.IsValid() {
		doc.Location = &LocationDocument{
			World: r.Position.World,
			X:     r.Position.X,
			Y:     r.Position.Y,
			Z:     r.Position.Z,
		}
	}

	for grantee, access := range r.Shared(time.Now()) {
		shared := SharedDocument{Access: access.Level.String()}
		if access.ExpiresAt != nil {
			ms := access.ExpiresAt.UnixMilli()
			shared.Expires = &ms
		}
		doc.Shared[grantee.String()] = shared
	}

	for _, kind := range r.Upgrades.Kinds() {
		doc.Upgrades[string(kind)] = r.Upgrades.Level(kind)
	}

	if r.Filter != nil {
		doc.Filter = &FilterDocument{
			Mode:  r.Filter.Mode.String(),
			Items: []string{},
		}
		for _, t := range r.Filter.Entries() {
			doc.Filter.Items = append(doc.Filter.Items, string(t))
		}
	}

	return doc, nil
}

//
// Decoding
//

type decoder struct {
	log         logger.Logger
	defaultMode model.FilterMode
}

// decodeRecord converts a document, dropping the malformed fields it can live without.
func (d *decoder) decodeRecord(doc *RecordDocument) (*model.StorageRecord, error) {
	owner, err := uuid.FromString(doc.Owner)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s: invalid owner", doc.StorageKey)
	}

	kind, ok := model.ParseKind(doc.Type)
	if !ok {
		return nil, errors.Errorf("record %s: unknown type %q", doc.StorageKey, doc.Type)
	}

	id := int(doc.Number)
	if id <= 0 {
		if _, kid, err := model.ParseStorageKey(doc.StorageKey); err == nil {
			id = kid
		}
	}
	if id <= 0 {
		return nil, errors.Errorf("record %s: invalid id", doc.StorageKey)
	}

	name := doc.Name
	if name == "" {
		name = "Chest " + strconv.Itoa(id)
	}

	var position *model.Position
	if doc.Location != nil && doc.Location.World != "" {
		position = &model.Position{
			World: doc.Location.World,
			X:     doc.Location.X,
			Y:     doc.Location.Y,
			Z:     doc.Location.Z,
		}
	}

	now := time.Now()
	r := model.NewStorageRecord(owner, id, name, kind, position, now)
	if doc.StorageKey != "" && doc.StorageKey != r.Key {
		d.log.Warnf("Record %s is stored under a mismatching key, using %s", doc.StorageKey, r.Key)
	}

	if doc.Created > 0 {
		r.CreatedAt = time.UnixMilli(doc.Created)
	}
	r.LastAccessedAt = r.CreatedAt
	if doc.LastAccessed > 0 {
		r.LastAccessedAt = time.UnixMilli(doc.LastAccessed)
	}
	r.LastModifiedAt = r.LastAccessedAt
	if doc.LastModified > 0 {
		r.LastModifiedAt = time.UnixMilli(doc.LastModified)
	}

	contents, size, err := decodeContents(doc.Contents)
	if err != nil {
		d.log.Errorf("Record %s: unreadable contents: %s", r.Key, err)
	}
	r.Contents = model.NewItemSlots(min(max(kind.BaseCapacity(), size), model.MaxCapacity), contents)

	for key, level := range doc.Upgrades {
		k, ok := model.ParseUpgradeKind(key)
		if !ok {
			d.log.Warnf("Record %s: unknown upgrade %q", r.Key, key)
			continue
		}
		r.Upgrades.Set(k, level)
	}

	r.Filter = d.decodeFilter(r.Key, doc.Filter)

	for key, shared := range doc.Shared {
		grantee, err := uuid.FromString(key)
		if err != nil {
			d.log.Warnf("Record %s: invalid grantee %q", r.Key, key)
			continue
		}
		access, ok := decodeShared(shared)
		if !ok {
			d.log.Warnf("Record %s: invalid access %q for %s", r.Key, shared.Access, key)
			continue
		}
		r.SetSharedAccess(grantee, &access, now)
	}

	return r, nil
}

func (d *decoder) decodeFilter(key string, doc *FilterDocument) *model.Filter {
	if doc == nil {
		return model.NewFilter(d.defaultMode)
	}

	f := model.NewFilter(model.ParseFilterMode(doc.Mode, d.defaultMode))
	for _, raw := range doc.Items {
		t, ok := model.ParseItemType(raw)
		if !ok {
			d.log.Warnf("Record %s: unknown filter item %q", key, raw)
			continue
		}
		f.Add(t, 0)
	}
	return f
}

func decodeShared(doc SharedDocument) (model.SharedAccess, bool) {
	level, ok := model.ParseAccessLevel(doc.Access)
	if !ok {
		return model.SharedAccess{}, false
	}

	access := model.SharedAccess{Level: level}
	if doc.Expires != nil && *doc.Expires > 0 {
		t := time.UnixMilli(*doc.Expires)
		access.ExpiresAt = &t
	}
	return access, true
}

// isSharedWith returns true if the grant of grantee exists and is live.
func isSharedWith(shared map[string]SharedDocument, grantee uuid.UUID, now time.Time) bool {
	doc, ok := shared[grantee.String()]
	if !ok {
		return false
	}
	access, ok := decodeShared(doc)
	return ok && !access.IsExpired(now)
}

//
// Item payload
//

type (
	contentsPayload struct {
		Size  int
		Slots []slotPayload
	}

	slotPayload struct {
		Index int
		Stack model.ItemStack
	}
)

// encodeContents serializes the slots as a base64 gob blob. Empty slots are omitted.
func encodeContents(slots *model.ItemSlots) (string, error) {
	payload := contentsPayload{Size: slots.Capacity()}
	if slots != nil {
		for i, stack := range slots.CopyContents() {
			if stack.IsEmpty() {
				continue
			}
			payload.Slots = append(payload.Slots, slotPayload{Index: i, Stack: *stack})
		}
	}

	data, err := gob.Codec.Marshal(&payload)
	if err != nil {
		return "", errors.Wrap(err, "could not encode contents")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// decodeContents returns the stacks indexed by slot and the stored capacity.
func decodeContents(raw string) ([]*model.ItemStack, int, error) {
	if raw == "" {
		return nil, 0, nil
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, 0, errors.Wrap(err, "could not decode contents")
	}

	var payload contentsPayload
	if err = gob.Codec.Unmarshal(data, &payload); err != nil {
		return nil, 0, errors.Wrap(err, "could not decode contents")
	}

	size := min(max(0, payload.Size), model.MaxCapacity)
	contents := make([]*model.ItemStack, size)
	for _, slot := range payload.Slots {
		if slot.Index < 0 || slot.Index >= size {
			continue
		}
		stack := slot.Stack
		contents[slot.Index] = &stack
	}
	return contents, size, nil
}
