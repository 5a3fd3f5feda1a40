package offer

import (
	"context"
	defError "errors"
	"time"

	"offer-collab-service/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed offer store. The check-and-set runs in a
// single transaction holding the offer's row lock, so commits on the same
// offer are linearized while distinct offers proceed in parallel.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (r *GormStore) Create(ctx context.Context, offer *domain.Offer) error {
	if offer.Fields == nil {
		offer.Fields = domain.FieldMap{}
	}
	now := time.Now().UTC()
	offer.Version = 0
	offer.CreatedAt = now
	offer.UpdatedAt = now
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *GormStore) Get(ctx context.Context, id uint64) (*domain.Offer, error) {
	var o domain.Offer
	err := r.db.WithContext(ctx).First(&o, id).Error
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *GormStore) Commit(ctx context.Context, id uint64, expectedVersion uint64, changes domain.FieldMap) (*CommitResult, error) {
	var result *CommitResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Offer

		// Row lock for the duration of the check-and-set
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, id).Error; err != nil {
			if defError.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if current.Version != expectedVersion {
			result = &CommitResult{
				OK:      false,
				Version: current.Version,
				Fields:  current.Fields.Clone(),
			}
			return nil
		}

		fields := current.Fields.Clone()
		previous := make(domain.FieldMap, len(changes))
		for field, value := range changes {
			previous[field] = fields[field]
			fields[field] = value
		}

		now := time.Now().UTC()
		if err := tx.Model(&domain.Offer{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"version":    expectedVersion + 1,
				"fields":     fields,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		result = &CommitResult{
			OK:       true,
			Version:  expectedVersion + 1,
			Fields:   fields,
			Previous: previous,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}
