package models

import "time"

const (
	ActionConsumed = "consumed"
	ActionWasted   = "wasted"
)

// ConsumptionLog records that some share of an item was eaten or thrown away.
type ConsumptionLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index:idx_consumption_user_created;not null" json:"user_id"`
	PurchaseID *uint     `gorm:"index" json:"purchase_id"`
	ItemName   string    `gorm:"size:255;not null" json:"item_name"`
	Action     string    `gorm:"size:16;not null" json:"action"`
	Percentage int       `gorm:"not null;default:100" json:"percentage"`
	Quantity   float64   `gorm:"not null;default:0" json:"quantity"`
	Reason     string    `gorm:"size:255" json:"reason"`
	CreatedAt  time.Time `gorm:"index:idx_consumption_user_created" json:"created_at"`
}
