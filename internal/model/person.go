package model

import (
	"time"

	"gorm.io/gorm"
)

// Person roles.
const (
	RoleCadet = "cadet"
	RoleAdmin = "admin"
)

// Person occupancy states.
const (
	StateCheckedIn  = "checkIn"
	StateCheckedOut = "checkOut"
)

// Person represents a card holder. A person is checked in exactly when a
// card number and check-in timestamp are set.
type Person struct {
	ID          int64  `gorm:"primaryKey"`
	Login       string `gorm:"uniqueIndex;size:50;not null"`
	Role        string `gorm:"size:10;not null;default:cadet"`
	Email       string `gorm:"size:100"`
	CardNo      *int   `gorm:"index"`
	State       string `gorm:"size:10;not null;default:checkOut"`
	CheckinAt   *time.Time
	CheckoutAt  *time.Time
	Actor       string `gorm:"size:50"`
	LastEventID *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// CheckedIn reports whether the person currently holds a card.
func (p *Person) CheckedIn() bool {
	return p.State == StateCheckedIn
}

// IsAdmin reports whether the person may perform administrative actions.
func (p *Person) IsAdmin() bool {
	return p.Role == RoleAdmin
}
