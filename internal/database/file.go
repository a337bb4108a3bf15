package database

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/chestlink/internal/xpath"
	"github.com/pkg/errors"
)

// fileStore persists one JSON index per owner and one JSON file per record.
type fileStore struct {
	ctrl Controller
	mu   sync.Mutex // serializes writes
}

// NewFileStore returns a Client backed by JSON files in the storage workspace.
func NewFileStore(ctrl Controller) Client {
	ctrl.Logger = ctrl.Logger.WithPrefix("[database]")
	return &fileStore{
		ctrl: ctrl,
	}
}

func (c *fileStore) decoder() *decoder {
	return &decoder{
		log:         c.ctrl.Logger,
		defaultMode: c.ctrl.defaultFilterMode(),
	}
}

func (c *fileStore) Load(owner uuid.UUID) (*model.OwnerRegistry, error) {
	reg := model.NewOwnerRegistry(owner)

	payload, err := storage.ReadFile(c.ctrl.Storage, xpath.PlayersDir, xpath.OwnerFilename(owner))
	if os.IsNotExist(errors.Cause(err)) {
		return reg, nil
	}
	if err != nil {
		c.ctrl.Logger.Errorf("Could not read index of %s: %s", owner, err)
		return reg, nil
	}

	var doc OwnerDocument
	if err = json.Unmarshal(payload, &doc); err != nil {
		c.ctrl.Logger.Errorf("Malformed index of %s: %s", owner, err)
		return reg, nil
	}
	reg.OwnerName = doc.OwnerName
	reg.NextID = max(1, doc.NextID)

	dec := c.decoder()
	for _, key := range doc.keys() {
		r, err := c.loadRecord(dec, key)
		if err != nil {
			c.ctrl.Logger.Errorf("Skipping record %s: %s", key, err)
			continue
		}
		if r.Owner != owner {
			c.ctrl.Logger.Warnf("Skipping record %s: owned by %s", key, r.Owner)
			continue
		}
		reg.Add(r)
	}

	return reg, nil
}

func (c *fileStore) loadRecord(dec *decoder, key string) (*model.StorageRecord, error) {
	doc, err := c.readRecord(xpath.RecordFilename(key))
	if err != nil {
		return nil, err
	}
	return dec.decodeRecord(doc)
}

func (c *fileStore) readRecord(filename string) (*RecordDocument, error) {
	payload, err := storage.ReadFile(c.ctrl.Storage, xpath.InventoriesDir, filename)
	if err != nil {
		return nil, err
	}

	var doc RecordDocument
	err = json.Unmarshal(payload, &doc)
	return &doc, errors.Wrap(err, "malformed record")
}

func (c *fileStore) Save(reg *model.OwnerRegistry) error {
	for _, r := range reg.Records() {
		if err := c.SaveRecord(r); err != nil {
			return err
		}
	}

	payload, err := json.MarshalIndent(encodeOwner(reg), "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode index")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = storage.WriteFile(c.ctrl.Storage, xpath.PlayersDir, xpath.OwnerFilename(reg.Owner), payload)
	return errors.Wrap(err, "could not save index")
}

func (c *fileStore) SaveRecord(r *model.StorageRecord) error {
	doc, err := encodeRecord(r)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode record")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = storage.WriteFile(c.ctrl.Storage, xpath.InventoriesDir, xpath.RecordFilename(r.Key), payload)
	return errors.Wrap(err, "could not save record")
}

func (c *fileStore) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ctrl.Storage.Remove(xpath.InventoriesDir, xpath.RecordFilename(key))
}

func (c *fileStore) LoadSharedTo(grantee uuid.UUID) ([]*model.StorageRecord, error) {
	filenames, err := c.ctrl.Storage.FilenamesFrom(xpath.InventoriesDir)
	if err != nil {
		return nil, errors.Wrap(err, "could not list records")
	}

	now := time.Now()
	dec := c.decoder()

	var records []*model.StorageRecord
	for _, filename := range filenames {
		if _, ok := xpath.RecordKey(filename); !ok {
			continue
		}

		doc, err := c.readRecord(filename)
		if err != nil {
			c.ctrl.Logger.Errorf("Skipping %s: %s", filename, err)
			continue
		}
		if !isSharedWith(doc.Shared, grantee, now) {
			continue
		}

		r, err := dec.decodeRecord(doc)
		if err != nil {
			c.ctrl.Logger.Errorf("Skipping %s: %s", filename, err)
			continue
		}
		records = append(records, r)
	}

	return records, nil
}

func (c *fileStore) Owners() ([]uuid.UUID, error) {
	filenames, err := c.ctrl.Storage.FilenamesFrom(xpath.PlayersDir)
	if err != nil {
		return nil, errors.Wrap(err, "could not list owners")
	}

	var owners []uuid.UUID
	for _, filename := range filenames {
		if owner, ok := xpath.OwnerFromFilename(filename); ok {
			owners = append(owners, owner)
		}
	}
	return owners, nil
}

func (c *fileStore) MigrateLegacy() (int, error) {
	return migrateLegacy(c.ctrl, c)
}

func (c *fileStore) Close() error {
	return nil
}
