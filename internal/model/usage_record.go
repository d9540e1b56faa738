package model

import "time"

// UsageRecord is the append-only record of one completed occupancy episode,
// created exactly once at check-out or force-check-out time.
type UsageRecord struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	Login           string    `gorm:"size:50;not null;index"`
	CheckinAt       time.Time `gorm:"not null"`
	CheckoutAt      time.Time `gorm:"not null"`
	DurationSeconds int64     `gorm:"not null"`
	Actor           string    `gorm:"size:50"`
	CreatedAt       time.Time `gorm:"not null"`
}
