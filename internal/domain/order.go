package domain

import "time"

// Order is one committed purchase. Rows are append-only: they are
// written in the same transaction as the stock decrement and never
// updated afterwards. The (user_id, ordered_at) index serves the bot
// guard's trailing-window count.
type Order struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	SneakerID int64     `gorm:"index" json:"sneaker_id"`
	Size      string    `gorm:"size:16" json:"size"`
	UserID    string    `gorm:"size:64;index:idx_orders_user_time,priority:1" json:"user_id"`
	Amount    int64     `json:"amount"`
	OrderedAt time.Time `gorm:"index:idx_orders_user_time,priority:2" json:"ordered_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}
