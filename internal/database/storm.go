package database

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/json"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	ctrl Controller
	db   *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(json.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.Init(&OwnerDocument{}); err != nil {
		return errors.Wrap(err, "could not init owner index")
	}

	err = db.Init(&RecordDocument{})
	return errors.Wrap(err, "could not init record index")
}

// StormReIndex rebuilds the Storm indexes.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.ReIndex(&OwnerDocument{}); err != nil {
		return errors.Wrap(err, "could not ReIndex owners")
	}

	err = db.ReIndex(&RecordDocument{})
	return errors.Wrap(err, "could not ReIndex records")
}

// StormOpen returns a Client backed by a Storm database.
func StormOpen(database string, ctrl Controller) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	ctrl.Logger = ctrl.Logger.WithPrefix("[database]")
	return &strm{
		ctrl: ctrl,
		db:   db,
	}, nil
}

func (c *strm) decoder() *decoder {
	return &decoder{
		log:         c.ctrl.Logger,
		defaultMode: c.ctrl.defaultFilterMode(),
	}
}

func (c *strm) isNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

func (c *strm) Load(owner uuid.UUID) (*model.OwnerRegistry, error) {
	reg := model.NewOwnerRegistry(owner)

	var doc OwnerDocument
	err := c.db.One("OwnerID", owner.String(), &doc)
	if c.isNotFound(err) {
		return reg, nil
	}
	if err != nil {
		c.ctrl.Logger.Errorf("Could not read index of %s: %s", owner, err)
		return reg, nil
	}
	reg.OwnerName = doc.OwnerName
	reg.NextID = max(1, doc.NextID)

	dec := c.decoder()
	for _, key := range doc.keys() {
		var rdoc RecordDocument
		if err := c.db.One("StorageKey", key, &rdoc); err != nil {
			c.ctrl.Logger.Errorf("Skipping record %s: %s", key, err)
			continue
		}

		r, err := dec.decodeRecord(&rdoc)
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

// Save writes the records and the index in a single transaction.
func (c *strm) Save(reg *model.OwnerRegistry) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	for _, r := range reg.Records() {
		doc, err := encodeRecord(r)
		if err != nil {
			return err
		}
		if err = tx.Save(doc); err != nil {
			return errors.Wrap(err, "could not save record")
		}
	}

	if err = tx.Save(encodeOwner(reg)); err != nil {
		return errors.Wrap(err, "could not save index")
	}

	return errors.Wrap(tx.Commit(), "could not commit")
}

func (c *strm) SaveRecord(r *model.StorageRecord) error {
	doc, err := encodeRecord(r)
	if err != nil {
		return err
	}

	return errors.Wrap(c.db.Save(doc), "could not save record")
}

func (c *strm) Delete(key string) error {
	err := c.db.Select(q.Eq("StorageKey", key)).Delete(&RecordDocument{})
	if c.isNotFound(err) {
		return nil
	}
	return errors.Wrap(err, "could not delete record")
}

func (c *strm) LoadSharedTo(grantee uuid.UUID) ([]*model.StorageRecord, error) {
	docs := make([]*RecordDocument, 0)
	err := c.db.Select(q.NewFieldMatcher("Shared", sharedWith{grantee: grantee, now: time.Now()})).Find(&docs)
	if c.isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not get shared records")
	}

	dec := c.decoder()

	records := make([]*model.StorageRecord, 0, len(docs))
	for _, doc := range docs {
		r, err := dec.decodeRecord(doc)
		if err != nil {
			c.ctrl.Logger.Errorf("Skipping record %s: %s", doc.StorageKey, err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (c *strm) Owners() ([]uuid.UUID, error) {
	docs := make([]*OwnerDocument, 0)
	if err := c.db.All(&docs); err != nil {
		return nil, errors.Wrap(err, "could not get all owners")
	}

	owners := make([]uuid.UUID, 0, len(docs))
	for _, doc := range docs {
		owner, err := uuid.FromString(doc.owner())
		if err != nil {
			c.ctrl.Logger.Warnf("Skipping owner %q: %s", doc.owner(), err)
			continue
		}
		owners = append(owners, owner)
	}
	return owners, nil
}

func (c *strm) MigrateLegacy() (int, error) {
	return migrateLegacy(c.ctrl, c)
}

func (c *strm) Close() error {
	return c.db.Close()
}

// sharedWith matches the Shared field of records holding a live grant for grantee.
// Every record is visited.
type sharedWith struct {
	grantee uuid.UUID
	now     time.Time
}

func (m sharedWith) MatchField(v interface{}) (bool, error) {
	shared, ok := v.(map[string]SharedDocument)
	if !ok {
		return false, nil
	}
	return isSharedWith(shared, m.grantee, m.now), nil
}
