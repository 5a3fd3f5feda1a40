package history

import (
	"context"
	"time"

	"offer-collab-service/internal/domain"

	"gorm.io/gorm"
)

// GormLog persists the audit trail in Postgres, one row per commit.
type GormLog struct {
	db *gorm.DB
}

func NewGormLog(db *gorm.DB) *GormLog {
	return &GormLog{db: db}
}

func (l *GormLog) Append(ctx context.Context, entry *domain.EditHistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return l.db.WithContext(ctx).Create(entry).Error
}

func (l *GormLog) Read(ctx context.Context, documentID uint64, limit, offset int) ([]domain.EditHistoryEntry, bool, error) {
	var total int64
	if err := l.db.WithContext(ctx).
		Model(&domain.EditHistoryEntry{}).
		Where("document_id = ?", documentID).
		Count(&total).Error; err != nil {
		return nil, false, err
	}

	var entries []domain.EditHistoryEntry
	err := l.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, false, err
	}

	return entries, int64(offset+limit) < total, nil
}
