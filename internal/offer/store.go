package offer

import (
	"context"
	"errors"

	"offer-collab-service/internal/domain"
)

var ErrNotFound = errors.New("offer not found")

// CommitResult reports a check-and-set outcome. On success OK is true,
// Version/Fields are the newly committed state and Previous holds the values
// the changed fields had before the commit (for the audit trail). On a
// version mismatch OK is false and Version/Fields carry the authoritative
// current state so the caller can re-fetch, merge and resubmit.
type CommitResult struct {
	OK       bool
	Version  uint64
	Fields   domain.FieldMap
	Previous domain.FieldMap
}

// Store owns Offer.Version and Offer.Fields. Commit succeeds iff
// expectedVersion equals the current version; the check-and-set is atomic
// per offer, and distinct offers commit independently.
type Store interface {
	Create(ctx context.Context, offer *domain.Offer) error
	Get(ctx context.Context, id uint64) (*domain.Offer, error)
	Commit(ctx context.Context, id uint64, expectedVersion uint64, changes domain.FieldMap) (*CommitResult, error)
}
