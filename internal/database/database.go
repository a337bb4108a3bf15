package database

import (
	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/config"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/logger"
)

type (
	// A Client persists owner registries and their records.
	// Malformed persisted data never fails a load: it is logged and treated as absent.
	Client interface {
		// Load returns the registry of owner. A missing index yields an empty registry.
		Load(owner uuid.UUID) (*model.OwnerRegistry, error)
		// Save writes every record of the registry then rewrites its index.
		Save(reg *model.OwnerRegistry) error
		// SaveRecord writes a single record.
		SaveRecord(r *model.StorageRecord) error
		// Delete removes the record identified by the storage key.
		Delete(key string) error
		// Close the database.
		Close() error

		SharingInteraction
		MaintenanceInteraction
	}

	// A SharingInteraction defines the lookups across owners.
	SharingInteraction interface {
		// LoadSharedTo scans every record and returns those holding a live grant for grantee.
		LoadSharedTo(grantee uuid.UUID) ([]*model.StorageRecord, error)
	}

	// A MaintenanceInteraction defines the administrative operations.
	MaintenanceInteraction interface {
		// Owners lists every owner having an index.
		Owners() ([]uuid.UUID, error)
		// MigrateLegacy converts the bundled legacy files and archives them.
		// It returns the number of migrated owners.
		MigrateLegacy() (int, error)
	}

	// A Controller is an Iversion Of Control pattern used to init the database package.
	Controller struct {
		Logger   logger.Logger
		Storage  storage.Backend
		Settings *config.Holder
	}
)

func (c Controller) defaultFilterMode() model.FilterMode {
	if c.Settings == nil {
		return config.DefaultFilterSettings().DefaultMode
	}
	return c.Settings.Get().Filter.DefaultMode
}
