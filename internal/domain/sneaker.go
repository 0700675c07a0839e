package domain

import (
	"database/sql/driver"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SizeStock maps a size label (e.g. "US10") to the remaining purchasable
// count. It is stored as a single JSON column on the sneaker row; the
// (de)serialization happens only here, at the store boundary.
type SizeStock map[string]int

func (s SizeStock) Value() (driver.Value, error) {
	if s == nil {
		s = SizeStock{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal size stock")
	}
	return string(data), nil
}

func (s *SizeStock) Scan(src interface{}) error {
	if src == nil {
		*s = SizeStock{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported size stock column type %T", src)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return errors.Wrap(err, "unmarshal size stock")
	}
	return nil
}

// Clone returns an independent copy, so callers can mutate without
// affecting a shared record.
func (s SizeStock) Clone() SizeStock {
	c := make(SizeStock, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

type Sneaker struct {
	ID        int64     `gorm:"primaryKey" json:"id" form:"id"`
	Model     string    `gorm:"index" json:"model" form:"model"`
	BasePrice float64   `json:"base_price" form:"base_price"` // source currency (USD)
	IsCollab  bool      `json:"is_collab" form:"is_collab"`   // collab models never discount
	Sizes     SizeStock `gorm:"type:jsonb" json:"sizes" form:"sizes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Sneaker) TableName() string {
	return "sneakers"
}
