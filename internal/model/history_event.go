package model

import "time"

// History event types.
const (
	EventCheckIn       = "checkIn"
	EventCheckOut      = "checkOut"
	EventForceCheckOut = "forceCheckOut"
)

// HistoryEvent is one entry in the append-only audit trail. Rows are never
// updated or deleted in normal operation.
type HistoryEvent struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Login     string `gorm:"size:50;not null;index"`
	CardNo    *int
	EventType string `gorm:"size:20;not null"`
	Actor     string `gorm:"size:50"`
	CreatedAt time.Time `gorm:"not null;index"`
}
