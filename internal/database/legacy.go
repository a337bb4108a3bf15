package database

import (
	"sort"
	"strconv"

	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/chestlink/internal/xpath"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	// legacyFile is a bundled per-owner file holding every chest of the owner.
	legacyFile struct {
		Chests map[string]yaml.Node `yaml:"chests"`
	}

	legacyChest struct {
		ID           int                     `yaml:"id"`
		Name         string                  `yaml:"name"`
		Type         string                  `yaml:"type"`
		World        string                  `yaml:"world"`
		X            int                     `yaml:"x"`
		Y            int                     `yaml:"y"`
		Z            int                     `yaml:"z"`
		Created      int64                   `yaml:"created"`
		LastAccessed int64                   `yaml:"lastAccessed"`
		LastModified int64                   `yaml:"lastModified"`
		Contents     []*model.ItemStack      `yaml:"contents"`
		Upgrades     map[string]int          `yaml:"upgrades"`
		Filter       *legacyFilter           `yaml:"filter"`
		Shared       map[string]legacyShared `yaml:"shared"`
	}

	legacyFilter struct {
		Mode  string   `yaml:"mode"`
		Items []string `yaml:"items"`
	}

	legacyShared struct {
		Access  string `yaml:"access"`
		Expires *int64 `yaml:"expires"`
	}
)

// migrateLegacy converts every bundled owner file of the legacy directory into the current layout,
// then moves all the files of the legacy directory to the archive directory.
// Records already present in the current layout are kept as is.
func migrateLegacy(ctrl Controller, c Client) (int, error) {
	filenames, err := ctrl.Storage.FilenamesFrom(xpath.LegacyDir)
	if err != nil {
		return 0, errors.Wrap(err, "could not list legacy files")
	}

	var migrated int
	dec := &decoder{
		log:         ctrl.Logger,
		defaultMode: ctrl.defaultFilterMode(),
	}
	for _, filename := range filenames {
		if !xpath.IsLegacyFilename(filename) {
			continue
		}

		if err = migrateLegacyFile(ctrl, c, dec, filename); err != nil {
			ctrl.Logger.Errorf("Could not migrate %s: %s", filename, err)
			continue
		}
		migrated++
	}

	if len(filenames) == 0 {
		return 0, nil
	}

	for _, filename := range filenames {
		if err = ctrl.Storage.Move(xpath.LegacyDir, filename, xpath.ArchiveDir, filename); err != nil {
			return migrated, errors.Wrapf(err, "could not archive %s", filename)
		}
	}
	ctrl.Logger.Infof("Migrated %d legacy owners, originals archived in %s", migrated, xpath.ArchiveDir)

	return migrated, nil
}

func migrateLegacyFile(ctrl Controller, c Client, dec *decoder, filename string) error {
	owner, _ := xpath.OwnerFromFilename(filename)

	payload, err := storage.ReadFile(ctrl.Storage, xpath.LegacyDir, filename)
	if err != nil {
		return err
	}

	var file legacyFile
	if err = yaml.Unmarshal(payload, &file); err != nil {
		return errors.Wrap(err, "malformed legacy file")
	}

	reg, err := c.Load(owner)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(file.Chests))
	for key := range file.Chests {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node := file.Chests[key]

		var chest legacyChest
		if err := node.Decode(&chest); err != nil {
			ctrl.Logger.Warnf("%s: skipping chest %s: %s", filename, key, err)
			continue
		}
		if chest.ID <= 0 {
			chest.ID, _ = strconv.Atoi(key)
		}
		if chest.Type == "" {
			chest.Type = model.Single.String()
		}

		doc, err := chest.document(owner.String())
		if err != nil {
			ctrl.Logger.Warnf("%s: skipping chest %s: %s", filename, key, err)
			continue
		}
		r, err := dec.decodeRecord(doc)
		if err != nil {
			ctrl.Logger.Warnf("%s: skipping chest %s: %s", filename, key, err)
			continue
		}

		if _, ok := reg.Get(r.ID); ok {
			ctrl.Logger.Warnf("%s: chest %d already migrated", filename, r.ID)
			continue
		}
		reg.Add(r)
	}

	return c.Save(reg)
}

// document converts a legacy chest into the current persisted form.
func (l *legacyChest) document(owner string) (*RecordDocument, error) {
	doc := &RecordDocument{
		Number:       FlexInt(l.ID),
		Owner:        owner,
		Name:         l.Name,
		Type:         l.Type,
		Created:      l.Created,
		LastAccessed: l.LastAccessed,
		LastModified: l.LastModified,
		Upgrades:     l.Upgrades,
		Shared:       map[string]SharedDocument{},
	}
	doc.StorageKey = owner + "-" + strconv.Itoa(l.ID)

	if l.World != "" {
		doc.Location = &LocationDocument{
			World: l.World,
			X:     l.X,
			Y:     l.Y,
			Z:     l.Z,
		}
	}

	if l.Filter != nil {
		doc.Filter = &FilterDocument{
			Mode:  l.Filter.Mode,
			Items: l.Filter.Items,
		}
	}

	for grantee, shared := range l.Shared {
		access := shared.Access
		if access == "" {
			access = model.View.String()
		}
		doc.Shared[grantee] = SharedDocument{
			Access:  access,
			Expires: shared.Expires,
		}
	}

	// Legacy chests only hold their base capacity.
	kind, ok := model.ParseKind(l.Type)
	if !ok {
		return nil, errors.Errorf("unknown type %q", l.Type)
	}
	contents, err := encodeContents(model.NewItemSlots(kind.BaseCapacity(), l.Contents))
	if err != nil {
		return nil, err
	}
	doc.Contents = contents

	return doc, nil
}
