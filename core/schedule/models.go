package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mawazo/ratiba/core"
)

// Plannable hours of a day, inclusive.
const (
	MinHour = 4
	MaxHour = 21
)

// DayPlan maps a calendar date to free-text notes per hour of day.
// Only hours in [MinHour, MaxHour] are valid keys; blank notes are not stored.
type DayPlan struct {
	OwnerID   string         `json:"owner_id"`
	Date      time.Time      `json:"date"` // UTC midnight
	Notes     map[int]string `json:"notes"`
	UpdatedAt time.Time      `json:"updated_at"` // UTC
}

// NewDayPlan returns an empty plan for (ownerID, date).
func NewDayPlan(ownerID string, date time.Time) DayPlan {
	return DayPlan{
		OwnerID: ownerID,
		Date:    core.DateOf(date),
		Notes:   make(map[int]string),
	}
}

// FirstNote returns the lowest-hour non-blank note of the day.
func (p DayPlan) FirstNote() (hour int, note string, ok bool) {
	hours := make([]int, 0, len(p.Notes))
	for h := range p.Notes {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		if n := core.CleanString(p.Notes[h]); n != "" {
			return h, n, true
		}
	}
	return 0, "", false
}

// IsEmpty reports whether the plan holds no non-blank note.
func (p DayPlan) IsEmpty() bool {
	_, _, ok := p.FirstNote()
	return !ok
}

// clean drops blank notes and normalizes whitespace in the rest.
func (p *DayPlan) clean() {
	for h, n := range p.Notes {
		if n = core.CleanString(n); n == "" {
			delete(p.Notes, h)
		} else {
			p.Notes[h] = n
		}
	}
}

// SetNote contains information needed to set a single hour's note.
type SetNote struct {
	Hour int    `json:"hour" validate:"min=4,max=21"`
	Note string `json:"note"`
}

func (sn *SetNote) Validate(validate *validator.Validate) error {
	sn.Note = core.CleanString(sn.Note)
	return validate.Struct(sn)
}

// ReplaceNotes contains a whole day's notes; any hour not present is cleared.
type ReplaceNotes struct {
	Notes map[int]string `json:"notes"`
}

func (rn *ReplaceNotes) Validate(validate *validator.Validate) error {
	for h := range rn.Notes {
		if h < MinHour || h > MaxHour {
			return core.NewValidationError(nil, core.FieldError{
				Field: "notes",
				Error: fmt.Sprintf("hour %d is out of range [%d, %d]", h, MinHour, MaxHour),
			})
		}
	}
	return validate.Struct(rn)
}
