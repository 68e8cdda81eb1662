package models

import "time"

// Purchase is one logged food item. PurchasedAt is the day the user says they bought it;
// CreatedAt is when the row was inserted and is what the daily "log food" task looks at.
type Purchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index:idx_purchases_user_created;not null" json:"user_id"`
	ItemName    string    `gorm:"size:255;not null" json:"item_name"`
	Category    string    `gorm:"size:64" json:"category"`
	Barcode     string    `gorm:"size:32" json:"barcode"`
	Quantity    float64   `gorm:"not null;default:1" json:"quantity"`
	Unit        string    `gorm:"size:32" json:"unit"`
	Cost        float64   `gorm:"not null;default:0" json:"cost"`
	PurchasedAt time.Time `gorm:"not null" json:"purchased_at"`
	CreatedAt   time.Time `gorm:"index:idx_purchases_user_created" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
