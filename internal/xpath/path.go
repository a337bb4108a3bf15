package xpath

import (
	"net/url"
	"path"
	"strings"

	"github.com/gofrs/uuid"
)

// Directories of the persisted layout, relative to the data workspace.
const (
	PlayersDir     = "data/players"
	InventoriesDir = "data/inventories"
	LegacyDir      = "players"
	ArchiveDir     = "legacy-players-archive"
)

const (
	jsonExt = ".json"
	yamlExt = ".yml"
)

// OwnerFilename returns the name of the index file of owner.
func OwnerFilename(owner uuid.UUID) string {
	return owner.String() + jsonExt
}

// RecordFilename returns the name of the file holding the record key.
func RecordFilename(key string) string {
	return key + jsonExt
}

// RecordKey returns the storage key stored in filename, false when it is not a record file.
func RecordKey(filename string) (string, bool) {
	if !strings.HasSuffix(filename, jsonExt) {
		return "", false
	}
	return strings.TrimSuffix(filename, jsonExt), true
}

// OwnerFromFilename parses the owner of an index or legacy file.
func OwnerFromFilename(filename string) (uuid.UUID, bool) {
	ext := path.Ext(filename)
	if ext != jsonExt && ext != yamlExt {
		return uuid.Nil, false
	}

	owner, err := uuid.FromString(strings.TrimSuffix(filename, ext))
	if err != nil {
		return uuid.Nil, false
	}
	return owner, true
}

// IsLegacyFilename returns true if filename is a bundled per-owner file of the legacy layout.
func IsLegacyFilename(filename string) bool {
	_, ok := OwnerFromFilename(filename)
	return ok && path.Ext(filename) == yamlExt
}

// Reference unescapes a record reference (id or name) taken from a request path.
func Reference(p string) string {
	if cp, err := url.PathUnescape(p); err == nil {
		p = cp
	}
	return strings.TrimSpace(strings.Trim(p, "/"))
}
