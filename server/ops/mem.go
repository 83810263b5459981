package ops

import (
	"context"
	"sync"

	"github.com/luno/jettison/errors"

	"github.com/meshadmin/topomapper/api"
)

// MemDB is the in-memory registry used when redis isn't configured
// and in tests. Records are held most recent first.
type MemDB struct {
	mu      sync.RWMutex
	records []api.TopologyRecord
	waiters []chan struct{}
}

func NewMemDB() *MemDB {
	return &MemDB{}
}

func (m *MemDB) StoreTopology(_ context.Context, rec api.TopologyRecord) error {
	m.mu.Lock()
	m.records = append([]api.TopologyRecord{rec}, m.records...)
	if len(m.records) > RecentLimit {
		m.records = m.records[:RecentLimit]
	}
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	return nil
}

func (m *MemDB) GetTopology(_ context.Context, id string) (api.TopologyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return api.TopologyRecord{}, errors.Wrap(ErrTopologyNotFound, "")
}

func (m *MemDB) LatestTopology(_ context.Context) (api.TopologyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return api.TopologyRecord{}, errors.Wrap(ErrTopologyNotFound, "")
	}
	return m.records[0], nil
}

func (m *MemDB) ListTopologies(context.Context) ([]api.TopologyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]api.TopologyRecord, len(m.records))
	copy(ret, m.records)
	return ret, nil
}

func (m *MemDB) WaitForChanges() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.waiters = append(m.waiters, ch)
	return ch
}

var _ TopologyDB = (*MemDB)(nil)
