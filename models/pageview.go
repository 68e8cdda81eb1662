package models

import "time"

// PageView stores aggregated successful request counts per day and route.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      string    `gorm:"size:10;index:idx_pv_date_path,unique;not null" json:"date"`
	Path      string    `gorm:"size:255;index:idx_pv_date_path,unique;not null" json:"path"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
