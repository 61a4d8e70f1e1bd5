package reminder

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mawazo/ratiba/core"
)

// Reminder is a user-facing due-item, either user-created or auto-derived
// from the first non-empty hourly note of a day's schedule.
type Reminder struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	DueAt      time.Time `json:"due_at"` // UTC
	Note       string    `json:"note,omitempty"`
	Auto       bool      `json:"auto"`
	Done       bool      `json:"done"`
	NotifiedAt time.Time `json:"-"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Day returns the UTC calendar date the reminder is due on.
func (r Reminder) Day() time.Time {
	return core.DateOf(r.DueAt)
}

// DueReminder is a due, not-yet-notified Reminder joined with its owner's
// contact details for dispatching.
type DueReminder struct {
	Reminder
	OwnerName  string
	OwnerEmail string
}

// NewReminder contains information needed to create a user Reminder.
type NewReminder struct {
	Title string    `json:"title" validate:"required"`
	DueAt time.Time `json:"due_at" validate:"required"`
	Note  string    `json:"note"`
}

func (nr *NewReminder) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Note = core.CleanString(nr.Note)
	return validate.Struct(nr)
}

// UpdateReminder defines what may be modified on an existing Reminder.
// Zero fields are left untouched; Note and Done use pointers so they can be
// cleared/unset explicitly.
type UpdateReminder struct {
	Title string    `json:"title"`
	DueAt time.Time `json:"due_at"`
	Note  *string   `json:"note"`
	Done  *bool     `json:"done"`
}

func (ur *UpdateReminder) Validate(validate *validator.Validate) error {
	ur.Title = core.CleanString(ur.Title)
	if ur.Note != nil {
		note := core.CleanString(*ur.Note)
		ur.Note = &note
	}
	return validate.Struct(ur)
}

// touchesContent reports whether the update modifies reminder content
// (as opposed to only flipping Done).
func (ur UpdateReminder) touchesContent() bool {
	return ur.Title != "" || !ur.DueAt.IsZero() || ur.Note != nil
}

type QueryFilter struct {
	Search  string    `json:"search" query:"search"`
	DueFrom time.Time `json:"due_from" query:"due_from"`
	DueTo   time.Time `json:"due_to" query:"due_to"`
	Done    *bool     `json:"done" query:"done"`
	Auto    *bool     `json:"auto" query:"auto"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search, true /* lower */)
}
