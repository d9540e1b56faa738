package checkin

import (
	"time"

	"checkin-backend/internal/cluster"
)

// CheckInResult reports the outcome of a check-in attempt. A duplicate
// check-in is reported with Conflict set and PrevState equal to State; no
// state is mutated in that case.
type CheckInResult struct {
	Result    bool   `json:"result"`
	CardNo    *int   `json:"card_no,omitempty"`
	State     string `json:"state"`
	PrevState string `json:"prev_state"`
	Conflict  bool   `json:"conflict"`
	Notice    bool   `json:"notice"`
}

// CheckOutResult reports the outcome of a check-out or force-check-out.
type CheckOutResult struct {
	Result          bool   `json:"result"`
	State           string `json:"state"`
	PrevState       string `json:"prev_state"`
	Conflict        bool   `json:"conflict"`
	DurationSeconds int64  `json:"duration_seconds"`
	Notice          bool   `json:"notice"`
}

// PersonStatus is the occupancy snapshot of a single person.
type PersonStatus struct {
	Login      string     `json:"login"`
	CardNo     *int       `json:"card_no"`
	State      string     `json:"state"`
	CheckinAt  *time.Time `json:"checkin_at"`
	CheckoutAt *time.Time `json:"checkout_at"`
}

// StatusResult combines a person's status with the cluster occupancy counts.
type StatusResult struct {
	User    PersonStatus              `json:"user"`
	Cluster map[cluster.Cluster]int64 `json:"cluster"`
	IsAdmin bool                      `json:"isAdmin"`
}

// DayUsage is the total occupancy duration of one calendar day.
type DayUsage struct {
	Day     string `json:"day"`
	Seconds int64  `json:"seconds"`
}

// Notifier receives capacity alerts. Implementations must not block and
// must never surface delivery failures to the admission path.
type Notifier interface {
	Notify(c cluster.Cluster, remaining int)
}
