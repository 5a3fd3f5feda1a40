package history

import (
	"context"

	"offer-collab-service/internal/domain"
)

// Log is the append-only audit trail of committed offer updates. Append is
// called only by the update engine, once per successful commit; entries are
// never modified afterwards. Read pages newest-first over offset/limit, with
// hasMore = offset+limit < total.
type Log interface {
	Append(ctx context.Context, entry *domain.EditHistoryEntry) error
	Read(ctx context.Context, documentID uint64, limit, offset int) ([]domain.EditHistoryEntry, bool, error)
}
