package manager

import "github.com/gofrs/uuid"

// owners returns every owner known by the database or the cache.
func (m *Manager) owners() ([]uuid.UUID, error) {
	owners, err := m.db.Owners()
	if err != nil {
		return nil, err
	}

	known := make(map[uuid.UUID]bool, len(owners))
	for _, owner := range owners {
		known[owner] = true
	}
	for _, reg := range m.cached() {
		if !known[reg.Owner] {
			owners = append(owners, reg.Owner)
		}
	}
	return owners, nil
}

// Reindex renumbers the records of owner from 1. The files of the old ids are removed.
func (m *Manager) Reindex(owner uuid.UUID) error {
	reg, err := m.registry(owner)
	if err != nil {
		return err
	}

	unlock := m.lock(owner)
	defer unlock()

	for _, r := range reg.Records() {
		m.closeViews(r)
	}

	stale := reg.Reindex()
	if err = m.db.Save(reg); err != nil {
		return err
	}

	for _, key := range stale {
		if err = m.db.Delete(key); err != nil {
			m.log.Errorf("Could not delete record %s: %s", key, err)
		}
	}
	return nil
}

// ReindexAll reindexes every owner and returns how many were reindexed.
func (m *Manager) ReindexAll() (int, error) {
	owners, err := m.owners()
	if err != nil {
		return 0, err
	}

	var n int
	for _, owner := range owners {
		if err := m.Reindex(owner); err != nil {
			m.log.Errorf("Could not reindex %s: %s", owner, err)
			continue
		}
		n++
	}
	m.log.Infof("Reindexed %d owners", n)
	return n, nil
}

// PurgeBroken removes the records of every owner that lost their position or contents.
// It returns the number of removed records.
func (m *Manager) PurgeBroken() (int, error) {
	owners, err := m.owners()
	if err != nil {
		return 0, err
	}

	var removed int
	for _, owner := range owners {
		reg, err := m.registry(owner)
		if err != nil {
			m.log.Errorf("Could not purge %s: %s", owner, err)
			continue
		}

		unlock := m.lock(owner)
		broken := reg.PurgeBroken()
		for _, r := range broken {
			m.closeViews(r)
			if err := m.db.Delete(r.Key); err != nil {
				m.log.Errorf("Could not delete record %s: %s", r.Key, err)
			}
		}
		if len(broken) > 0 {
			m.save(reg)
		}
		unlock()

		removed += len(broken)
	}

	m.log.Infof("Purged %d broken records", removed)
	return removed, nil
}
