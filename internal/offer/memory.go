package offer

import (
	"context"
	"sync"
	"time"

	"offer-collab-service/internal/domain"
)

// MemoryStore keeps offers in memory. Used for unit tests and for running
// the service without Postgres. Mutual exclusion is scoped per offer: an
// arena of per-document mutexes, never one global lock around commits.
type MemoryStore struct {
	mu     sync.RWMutex
	offers map[uint64]*domain.Offer
	locks  map[uint64]*sync.Mutex
	nextID uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		offers: make(map[uint64]*domain.Offer),
		locks:  make(map[uint64]*sync.Mutex),
		nextID: 1,
	}
}

// lockFor returns the commit mutex for one offer, creating it on first use.
func (m *MemoryStore) lockFor(id uint64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *MemoryStore) Create(ctx context.Context, offer *domain.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if offer.ID == 0 {
		offer.ID = m.nextID
		m.nextID++
	} else if offer.ID >= m.nextID {
		m.nextID = offer.ID + 1
	}
	if offer.Fields == nil {
		offer.Fields = domain.FieldMap{}
	}
	now := time.Now().UTC()
	offer.Version = 0
	offer.CreatedAt = now
	offer.UpdatedAt = now

	stored := *offer
	stored.Fields = offer.Fields.Clone()
	m.offers[offer.ID] = &stored
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id uint64) (*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *o
	out.Fields = o.Fields.Clone()
	return &out, nil
}

func (m *MemoryStore) Commit(ctx context.Context, id uint64, expectedVersion uint64, changes domain.FieldMap) (*CommitResult, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	o, ok := m.offers[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if o.Version != expectedVersion {
		return &CommitResult{
			OK:      false,
			Version: o.Version,
			Fields:  o.Fields.Clone(),
		}, nil
	}

	// Stored snapshots are never mutated in place; readers holding the old
	// snapshot stay consistent while we swap in the new one.
	next := *o
	next.Fields = o.Fields.Clone()
	previous := make(domain.FieldMap, len(changes))
	for field, value := range changes {
		previous[field] = next.Fields[field]
		next.Fields[field] = value
	}
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	m.offers[id] = &next
	m.mu.Unlock()

	return &CommitResult{
		OK:       true,
		Version:  next.Version,
		Fields:   next.Fields.Clone(),
		Previous: previous,
	}, nil
}
