package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// FieldMap holds the negotiable fields of an offer (price, deliverables,
// delivery date, ...). The collaboration core is value-type agnostic; it is
// persisted as a single JSONB column.
type FieldMap map[string]any

func (f FieldMap) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FieldMap) Scan(value any) error {
	if value == nil {
		*f = FieldMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return errors.New("unsupported type for FieldMap")
	}
}

// Clone returns a shallow copy so callers can't mutate a committed snapshot.
func (f FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Offer is the negotiable document a marketer and a creator edit together.
// Version and Fields always change together, atomically; Version increases
// by exactly 1 per committed update.
type Offer struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Version   uint64    `gorm:"not null;default:0" json:"version"`
	Fields    FieldMap  `gorm:"type:jsonb;not null;default:'{}'" json:"fields"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
