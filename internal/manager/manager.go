package manager

import (
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/chestlink/internal/config"
	"github.com/mdouchement/chestlink/internal/database"
	"github.com/mdouchement/chestlink/internal/economy"
	"github.com/mdouchement/chestlink/internal/model"
	"github.com/mdouchement/chestlink/internal/scheduler"
	"github.com/mdouchement/logger"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -destination=mocks/host.go -package=mocks github.com/mdouchement/chestlink/internal/manager Host

// PermissionAdmin lets an actor open and modify any record.
const PermissionAdmin = "chestlink.admin.open"

// Policy violations.
var (
	ErrAccessDenied    = errors.New("access denied")
	ErrNotOwner        = errors.New("only the owner can do that")
	ErrShareSelf       = errors.New("cannot share a record with its owner")
	ErrNoPendingBind   = errors.New("no pending bind")
	ErrAlreadyBound    = errors.New("position already bound")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidName     = errors.New("invalid name")
	ErrUnknownView     = errors.New("unknown view")
	ErrUpgradeDisabled = errors.New("upgrade disabled")
	ErrMaxLevel        = errors.New("upgrade already at max level")
	ErrLimitReached    = errors.New("upgrade limit reached")
	ErrCannotPay       = errors.New("cannot pay the upgrade")
	ErrFilterFull      = errors.New("filter is full")
	ErrNoPendingRename = errors.New("no pending rename")
	ErrRecordFull      = errors.New("record is full")
)

type (
	// An Actor is the user acting on records.
	Actor interface {
		config.Permissible

		// ID is the owner and grantee key of the actor.
		ID() uuid.UUID
		// Name is the display name of the actor.
		Name() string
		// Give puts stacks in the actor's personal inventory and returns what did not fit.
		Give(stacks ...*model.ItemStack) []*model.ItemStack
		// Location returns where the actor stands, nil when unknown.
		Location() *model.Position
	}

	// An XPPayer is an Actor able to pay with experience levels.
	XPPayer interface {
		XPLevels() int
		TakeXPLevels(n int)
	}

	// An ItemPayer is an Actor able to pay with items of its personal inventory.
	ItemPayer interface {
		CountOf(t model.ItemType) int
		Consume(t model.ItemType, amount int) int
	}

	// A Host places items in the world.
	Host interface {
		Drop(at *model.Position, stacks []*model.ItemStack)
	}

	// A Controller is an Iversion Of Control pattern used to init the manager package.
	Controller struct {
		Logger         logger.Logger
		Database       database.Client
		Settings       *config.Holder
		Economy        economy.Bridge
		Host           Host
		Queue          *scheduler.Queue
		PendingBindTTL time.Duration
	}

	// A Manager orchestrates owner registries, transforms, sharing and views.
	// Every mutation of an owner's records is serialized by a per-owner lock.
	Manager struct {
		log      logger.Logger
		db       database.Client
		holder   *config.Holder
		economy  economy.Bridge
		host     Host
		queue    *scheduler.Queue
		loader   singleflight.Group
		pending  *cache.Cache
		sorting  *cache.Cache
		cacheMu  sync.RWMutex
		cache    map[uuid.UUID]*model.OwnerRegistry
		locks    sync.Map
		viewsMu  sync.Mutex
		views    map[string]*model.ViewHandle
		readMu   sync.RWMutex
		readOnly map[uuid.UUID]struct{}
	}
)

// New returns a Manager.
func New(c Controller) *Manager {
	ttl := c.PendingBindTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Manager{
		log:      c.Logger.WithPrefix("[manager]"),
		db:       c.Database,
		holder:   c.Settings,
		economy:  c.Economy,
		host:     c.Host,
		queue:    c.Queue,
		pending:  cache.New(ttl, 2*ttl),
		sorting:  cache.New(cache.NoExpiration, 0),
		cache:    map[uuid.UUID]*model.OwnerRegistry{},
		views:    map[string]*model.ViewHandle{},
		readOnly: map[uuid.UUID]struct{}{},
	}
}

func (m *Manager) settings() *config.Settings {
	if m.holder == nil {
		return config.DefaultSettings()
	}
	return m.holder.Get()
}

// lock serializes the mutations of owner's records. The returned func releases the lock.
func (m *Manager) lock(owner uuid.UUID) func() {
	mu, _ := m.locks.LoadOrStore(owner, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

//
// Cache
//

// registry returns the cached registry of owner, loading it on first access.
// Concurrent first accesses share a single load.
func (m *Manager) registry(owner uuid.UUID) (*model.OwnerRegistry, error) {
	m.cacheMu.RLock()
	reg, ok := m.cache[owner]
	m.cacheMu.RUnlock()
	if ok {
		return reg, nil
	}

	v, err, _ := m.loader.Do(owner.String(), func() (interface{}, error) {
		m.cacheMu.RLock()
		reg, ok := m.cache[owner]
		m.cacheMu.RUnlock()
		if ok {
			return reg, nil
		}

		reg, err := m.db.Load(owner)
		if err != nil {
			return nil, errors.Wrapf(err, "could not load owner %s", owner)
		}

		m.cacheMu.Lock()
		m.cache[owner] = reg
		m.cacheMu.Unlock()
		return reg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.OwnerRegistry), nil
}

// Registry returns the registry of owner after healing its records:
// capacities are grown to their configured size and expired grants are pruned.
func (m *Manager) Registry(owner uuid.UUID) (*model.OwnerRegistry, error) {
	reg, err := m.registry(owner)
	if err != nil {
		return nil, err
	}

	unlock := m.lock(owner)
	defer unlock()

	var changed bool
	now := time.Now()
	for _, r := range reg.Records() {
		if m.heal(r, now) {
			changed = true
		}
	}
	if changed {
		m.save(reg)
	}
	return reg, nil
}

// heal applies the capacity growth and prunes the expired grants of r, persisting r when it changed.
func (m *Manager) heal(r *model.StorageRecord, now time.Time) bool {
	resized := m.applyCapacity(r)
	pruned := r.PruneExpired(now) > 0
	if resized {
		m.refreshViews(r)
	}
	if resized || pruned {
		m.saveRecord(r)
		return true
	}
	return false
}

// live returns true if r is still the cached record of its owner under its id.
func (m *Manager) live(r *model.StorageRecord) bool {
	m.cacheMu.RLock()
	reg, ok := m.cache[r.Owner]
	m.cacheMu.RUnlock()
	if !ok {
		return false
	}

	current, ok := reg.Get(r.ID)
	return ok && current == r
}

func (m *Manager) cached() []*model.OwnerRegistry {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	registries := make([]*model.OwnerRegistry, 0, len(m.cache))
	for _, reg := range m.cache {
		registries = append(registries, reg)
	}
	return registries
}

// Snapshot returns a deep copy of r taken under the owner's lock.
func (m *Manager) Snapshot(r *model.StorageRecord) *model.StorageRecord {
	unlock := m.lock(r.Owner)
	defer unlock()

	return r.Clone(r.ID)
}

//
// Persistence
//

func (m *Manager) save(reg *model.OwnerRegistry) {
	if err := m.db.Save(reg); err != nil {
		m.log.Errorf("Could not save owner %s: %s", reg.Owner, err)
	}
}

func (m *Manager) saveRecord(r *model.StorageRecord) {
	if err := m.db.SaveRecord(r); err != nil {
		m.log.Errorf("Could not save record %s: %s", r.Key, err)
	}
}

// Save persists the registry of owner when it is cached.
func (m *Manager) Save(owner uuid.UUID) error {
	m.cacheMu.RLock()
	reg, ok := m.cache[owner]
	m.cacheMu.RUnlock()
	if !ok {
		return nil
	}

	unlock := m.lock(owner)
	defer unlock()

	return m.db.Save(reg)
}

// SaveAll persists every cached registry and returns how many were saved.
func (m *Manager) SaveAll() (int, error) {
	var n int
	var failure error
	for _, reg := range m.cached() {
		unlock := m.lock(reg.Owner)
		err := m.db.Save(reg)
		unlock()

		if err != nil {
			m.log.Errorf("Could not save owner %s: %s", reg.Owner, err)
			failure = err
			continue
		}
		n++
	}
	return n, failure
}

//
// Read-only viewers
//

// SetReadOnly flags the actor id as unable to modify any record.
func (m *Manager) SetReadOnly(id uuid.UUID, readOnly bool) {
	m.readMu.Lock()
	defer m.readMu.Unlock()

	if readOnly {
		m.readOnly[id] = struct{}{}
		return
	}
	delete(m.readOnly, id)
}

// IsReadOnly returns true if the actor id is flagged read-only.
func (m *Manager) IsReadOnly(id uuid.UUID) bool {
	m.readMu.RLock()
	defer m.readMu.RUnlock()

	_, ok := m.readOnly[id]
	return ok
}
