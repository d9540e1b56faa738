package model

import (
	"time"

	"gorm.io/gorm"
)

// AccessConfig is the per-environment capacity and time-window record. The
// row is effective for dates in [BeginAt, EndAt). Rows are maintained by the
// administrative path and only read by the admission core.
type AccessConfig struct {
	ID       int64     `gorm:"primaryKey"`
	Env      string    `gorm:"size:45;not null;index"`
	BeginAt  time.Time `gorm:"not null"`
	EndAt    time.Time `gorm:"not null"`
	OpenAt   string    `gorm:"size:8"`
	CloseAt  string    `gorm:"size:8"`
	MaxEast  int       `gorm:"not null"`
	MaxWest  int       `gorm:"not null"`
	AuthMode string    `gorm:"size:10"`
	Actor    string    `gorm:"size:50"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
