package study

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
)

var (
	// errors
	ErrNotFound            = errors.New("session not found")
	ErrActiveSessionExists = errors.New("an active study session already exists")

	errNotActive        = errors.New("session is not active")
	errNotPaused        = errors.New("session is not paused")
	errStillRunning     = errors.New("session has time remaining")
	errInvalidPasscode  = errors.New("invalid passcode")
	errPasscodeRequired = errors.New("session is locked; passcode required")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		GetSession(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (Session, error)
		// GetActiveSession returns the single running or paused session of
		// ownerID, or ErrNotFound.
		GetActiveSession(ctx context.Context, ownerID string, exec ...core.DBExecutor) (Session, error)
		// SaveSession persists all fields of an existing Session.
		SaveSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		QuerySessions(ctx context.Context, ownerID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Session, error)
	}

	Service struct {
		repo    Repository
		nowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

// Start begins a countdown session; at most one active session per owner.
// A stale running session whose timer already ran out is finalized instead of
// blocking the new one.
func (svc *Service) Start(ctx context.Context, ownerID string, ns NewSession) (Session, error) {
	now := svc.nowFunc().UTC()

	if active, err := svc.repo.GetActiveSession(ctx, ownerID); err == nil {
		if active.StateAt(now) != StateCompleted {
			return Session{}, core.NewValidationError(ErrActiveSessionExists)
		}
		if _, err = svc.finalize(ctx, active, now); err != nil {
			return Session{}, err
		}
	} else if errors.Cause(err) != ErrNotFound {
		return Session{}, errors.Wrap(err, "getting active session")
	}

	s := Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Duration:  time.Duration(ns.Minutes) * time.Minute,
		State:     StateRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ns.Passcode != "" {
		if err := s.SetPasscode(ns.Passcode); err != nil {
			return Session{}, errors.Wrap(err, "hashing passcode")
		}
	}
	return svc.repo.CreateSession(ctx, s)
}

// Active returns the owner's active session, finalizing it first if its
// timer already ran out.
func (svc *Service) Active(ctx context.Context, ownerID string) (Session, error) {
	s, err := svc.repo.GetActiveSession(ctx, ownerID)
	if err != nil {
		return Session{}, err
	}
	now := svc.nowFunc().UTC()
	if s.StateAt(now) == StateCompleted && s.State == StateRunning {
		return svc.finalize(ctx, s, now)
	}
	return s, nil
}

func (svc *Service) Get(ctx context.Context, ownerID, id string) (Session, error) {
	return svc.repo.GetSession(ctx, ownerID, id)
}

func (svc *Service) History(ctx context.Context, ownerID string, ordering []core.DBOrdering) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, ownerID, ordering)
}

// Pause freezes the countdown. A locked session requires the passcode.
func (svc *Service) Pause(ctx context.Context, ownerID, id, passcode string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, ownerID, id)
	if err != nil {
		return Session{}, err
	}
	now := svc.nowFunc().UTC()

	if s.StateAt(now) == StateCompleted && s.State == StateRunning {
		return svc.finalize(ctx, s, now)
	}
	if s.State != StateRunning {
		return Session{}, core.NewValidationError(errNotActive)
	}
	if err = svc.checkLock(s, passcode); err != nil {
		return Session{}, err
	}

	s.State = StatePaused
	s.PausedAt = now
	s.UpdatedAt = now
	return svc.repo.SaveSession(ctx, s)
}

// Resume restarts a paused countdown.
func (svc *Service) Resume(ctx context.Context, ownerID, id string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, ownerID, id)
	if err != nil {
		return Session{}, err
	}
	if s.State != StatePaused {
		return Session{}, core.NewValidationError(errNotPaused)
	}

	now := svc.nowFunc().UTC()
	s.PausedTotal += now.Sub(s.PausedAt)
	s.PausedAt = time.Time{}
	s.State = StateRunning
	s.UpdatedAt = now
	return svc.repo.SaveSession(ctx, s)
}

// Cancel abandons an active session. A locked session requires the passcode.
func (svc *Service) Cancel(ctx context.Context, ownerID, id, passcode string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, ownerID, id)
	if err != nil {
		return Session{}, err
	}
	now := svc.nowFunc().UTC()

	if s.StateAt(now) == StateCompleted && s.State == StateRunning {
		return svc.finalize(ctx, s, now)
	}
	if !s.Active() {
		return Session{}, core.NewValidationError(errNotActive)
	}
	if err = svc.checkLock(s, passcode); err != nil {
		return Session{}, err
	}

	if s.State == StatePaused {
		s.PausedTotal += now.Sub(s.PausedAt)
		s.PausedAt = time.Time{}
	}
	s.State = StateCancelled
	s.EndedAt = now
	s.UpdatedAt = now
	return svc.repo.SaveSession(ctx, s)
}

// Complete finalizes a session whose timer ran out. Completion never requires
// the focus-lock passcode.
func (svc *Service) Complete(ctx context.Context, ownerID, id string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, ownerID, id)
	if err != nil {
		return Session{}, err
	}
	now := svc.nowFunc().UTC()

	if !s.Active() {
		return Session{}, core.NewValidationError(errNotActive)
	}
	if s.Remaining(now) > 0 {
		return Session{}, core.NewValidationError(errStillRunning)
	}
	return svc.finalize(ctx, s, now)
}

// finalize marks a ran-out session completed at the instant its countdown hit zero.
func (svc *Service) finalize(ctx context.Context, s Session, now time.Time) (Session, error) {
	if s.State == StatePaused {
		s.PausedTotal += now.Sub(s.PausedAt)
		s.PausedAt = time.Time{}
	}
	s.State = StateCompleted
	s.EndedAt = s.StartedAt.Add(s.Duration + s.PausedTotal)
	if s.EndedAt.After(now) {
		s.EndedAt = now
	}
	s.UpdatedAt = now
	return svc.repo.SaveSession(ctx, s)
}

func (svc *Service) checkLock(s Session, passcode string) error {
	if !s.Locked {
		return nil
	}
	if passcode == "" {
		return core.NewValidationError(errPasscodeRequired, core.FieldError{Field: "passcode", Error: errPasscodeRequired.Error()})
	}
	if err := s.CheckPasscode(passcode); err != nil {
		return core.NewValidationError(errInvalidPasscode, core.FieldError{Field: "passcode", Error: errInvalidPasscode.Error()})
	}
	return nil
}
