package study

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// Session states
const (
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
)

// Session is a countdown study timer. Remaining time is always derived from
// StartedAt and the accumulated pause spans; nothing ticks in storage.
type Session struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	Duration    time.Duration `json:"duration"` // planned
	State       string        `json:"state"`
	StartedAt   time.Time     `json:"started_at"` // UTC
	PausedAt    time.Time     `json:"paused_at"`  // zero unless paused
	PausedTotal time.Duration `json:"paused_total"`
	EndedAt     time.Time     `json:"ended_at"` // zero while active

	// focus lock: pausing or cancelling a locked session requires the passcode
	Locked       bool   `json:"locked"`
	PasscodeHash []byte `json:"-"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Elapsed returns how much countdown time has been consumed at now.
func (s Session) Elapsed(now time.Time) time.Duration {
	switch s.State {
	case StateRunning:
		return now.Sub(s.StartedAt) - s.PausedTotal
	case StatePaused:
		return s.PausedAt.Sub(s.StartedAt) - s.PausedTotal
	default:
		return s.EndedAt.Sub(s.StartedAt) - s.PausedTotal
	}
}

// Remaining returns the countdown time left at now, floored at zero.
func (s Session) Remaining(now time.Time) time.Duration {
	if s.State == StateCompleted || s.State == StateCancelled {
		return 0
	}
	rem := s.Duration - s.Elapsed(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// StateAt reports the effective state at now: a running session whose
// remaining time hit zero reads as completed even before it is finalized.
func (s Session) StateAt(now time.Time) string {
	if s.State == StateRunning && s.Remaining(now) == 0 {
		return StateCompleted
	}
	return s.State
}

// Active reports whether the session still occupies its owner's single
// active-session slot.
func (s Session) Active() bool {
	return s.State == StateRunning || s.State == StatePaused
}

func (s *Session) SetPasscode(code string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasscodeHash = hash
	s.Locked = true
	return nil
}

func (s *Session) CheckPasscode(code string) error {
	return bcrypt.CompareHashAndPassword(s.PasscodeHash, []byte(code))
}

// NewSession contains information needed to start a Session.
type NewSession struct {
	Minutes  int    `json:"minutes" validate:"required,min=1,max=480"`
	Passcode string `json:"passcode" validate:"omitempty,min=4"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

// Unlock carries the focus-lock passcode for pause/cancel of a locked session.
type Unlock struct {
	Passcode string `json:"passcode"`
}
