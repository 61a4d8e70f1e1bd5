package progress

import (
	"time"

	"github.com/mawazo/ratiba/core"
)

// Week tracks the daily "met quota" toggles of one Monday-aligned week.
// Days[0] is Monday, Days[6] is Sunday.
type Week struct {
	OwnerID   string    `json:"owner_id"`
	StartDate time.Time `json:"start_date"` // Monday, UTC midnight
	Days      []bool    `json:"days"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewWeek returns an all-false week containing date.
func NewWeek(ownerID string, date time.Time) Week {
	return Week{
		OwnerID:   ownerID,
		StartDate: core.WeekStart(date),
		Days:      make([]bool, 7),
	}
}

// MetCount returns how many days of the week met the quota.
func (w Week) MetCount() int {
	var n int
	for _, met := range w.Days {
		if met {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no day of the week met the quota.
func (w Week) IsEmpty() bool {
	return w.MetCount() == 0
}

// Summary condenses a week for span queries.
type Summary struct {
	StartDate time.Time `json:"start_date"`
	DaysMet   int       `json:"days_met"`
}

// SetDay contains information needed to set a date's flag explicitly.
type SetDay struct {
	Met bool `json:"met"`
}
