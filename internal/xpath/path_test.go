package xpath_test

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/xpath"
	"github.com/stretchr/testify/assert"
)

func TestFilenames(t *testing.T) {
	owner := uuid.Must(uuid.NewV4())

	o, ok := xpath.OwnerFromFilename(xpath.OwnerFilename(owner))
	assert.True(t, ok)
	assert.Equal(t, owner, o)

	assert.True(t, xpath.IsLegacyFilename(owner.String()+".yml"))
	assert.False(t, xpath.IsLegacyFilename(owner.String()+".json"))
	assert.False(t, xpath.IsLegacyFilename("config.yml"))

	key, ok := xpath.RecordKey(xpath.RecordFilename(owner.String() + "-3"))
	assert.True(t, ok)
	assert.Equal(t, owner.String()+"-3", key)

	_, ok = xpath.RecordKey(".tmp")
	assert.False(t, ok)
}

func TestReference(t *testing.T) {
	assert.Equal(t, "My Chest", xpath.Reference("My%20Chest"))
	assert.Equal(t, "12", xpath.Reference("/12/"))
}
