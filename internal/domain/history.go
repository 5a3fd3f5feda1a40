package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// FieldChange records one field's before/after values inside a commit.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// FieldChanges is stored as a JSONB column on the history table.
type FieldChanges []FieldChange

func (c FieldChanges) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *FieldChanges) Scan(value any) error {
	if value == nil {
		*c = FieldChanges{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return errors.New("unsupported type for FieldChanges")
	}
}

// EditHistoryEntry is the immutable audit record of one committed update.
// Version is the document version AFTER the update applied; per document,
// versions are strictly increasing and gap-free starting at 1.
type EditHistoryEntry struct {
	ID         uint64       `gorm:"primaryKey" json:"id"`
	DocumentID uint64       `gorm:"index:idx_history_doc_version,priority:1;not null" json:"document_id"`
	Version    uint64       `gorm:"index:idx_history_doc_version,priority:2;not null" json:"version"`
	UserID     uint64       `gorm:"not null" json:"user_id"`
	UserRole   string       `gorm:"not null" json:"user_role"`
	Changes    FieldChanges `gorm:"type:jsonb;not null;default:'[]'" json:"changes"`
	CreatedAt  time.Time    `json:"created_at"`
}
