package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"offer-collab-service/internal/domain"
)

// MemoryLog keeps history in memory, per document. Reads never block appends
// for unrelated documents: the outer lock only guards the map of slices.
type MemoryLog struct {
	mu      sync.RWMutex
	entries map[uint64][]domain.EditHistoryEntry
	nextID  uint64
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: make(map[uint64][]domain.EditHistoryEntry), nextID: 1}
}

func (l *MemoryLog) Append(ctx context.Context, entry *domain.EditHistoryEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := *entry
	e.ID = l.nextID
	l.nextID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Changes = append(domain.FieldChanges{}, entry.Changes...)
	l.entries[e.DocumentID] = append(l.entries[e.DocumentID], e)
	entry.ID = e.ID
	return nil
}

func (l *MemoryLog) Read(ctx context.Context, documentID uint64, limit, offset int) ([]domain.EditHistoryEntry, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.entries[documentID]
	// newest first; commits on one document are serialized but their appends
	// may land slightly out of order, so order by version, not insertion
	sorted := append([]domain.EditHistoryEntry{}, all...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version > sorted[j].Version })

	total := len(sorted)
	if offset >= total {
		return []domain.EditHistoryEntry{}, false, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := append([]domain.EditHistoryEntry{}, sorted[offset:end]...)
	return page, end < total, nil
}
