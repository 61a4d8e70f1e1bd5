package study

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
)

// memRepo keeps sessions in a map so nowFunc-driven paths can be tested
// without a database.
type memRepo struct {
	sessions map[string]Session
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{sessions: make(map[string]Session)}
}

func (repo *memRepo) CreateSession(ctx context.Context, s Session, _ ...core.DBExecutor) (Session, error) {
	repo.sessions[s.ID] = s
	return s, nil
}

func (repo *memRepo) GetSession(ctx context.Context, ownerID, id string, _ ...core.DBExecutor) (Session, error) {
	s, ok := repo.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (repo *memRepo) GetActiveSession(ctx context.Context, ownerID string, _ ...core.DBExecutor) (Session, error) {
	for _, s := range repo.sessions {
		if s.OwnerID == ownerID && s.Active() {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

func (repo *memRepo) SaveSession(ctx context.Context, s Session, _ ...core.DBExecutor) (Session, error) {
	if _, ok := repo.sessions[s.ID]; !ok {
		return Session{}, ErrNotFound
	}
	repo.sessions[s.ID] = s
	return s, nil
}

func (repo *memRepo) QuerySessions(ctx context.Context, ownerID string, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Session, error) {
	var sessions []Session
	for _, s := range repo.sessions {
		if s.OwnerID == ownerID {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func setup(t *testing.T, start time.Time) (*Service, *time.Time) {
	t.Helper()

	now := start
	svc := NewService(newMemRepo())
	svc.nowFunc = func() time.Time { return now }
	return svc, &now
}

func TestService_Start(t *testing.T) {
	start := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, now := setup(t, start)
	ctx := context.Background()
	owner := "owner-1"

	s, err := svc.Start(ctx, owner, NewSession{Minutes: 25})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if s.State != StateRunning {
		t.Errorf("Start() state = %q; want %q", s.State, StateRunning)
	}
	if s.Duration != 25*time.Minute {
		t.Errorf("Start() duration = %v; want 25m", s.Duration)
	}
	if !s.StartedAt.Equal(start) {
		t.Errorf("Start() startedAt = %v; want %v", s.StartedAt, start)
	}
	if s.Locked {
		t.Error("Start() locked without a passcode")
	}

	// a second start while one is still running is rejected
	*now = start.Add(10 * time.Minute)
	if _, err = svc.Start(ctx, owner, NewSession{Minutes: 25}); errors.Cause(err) == nil {
		t.Error("Start() expected error while a session is active")
	} else if verr, ok := errors.Cause(err).(*core.ValidationError); !ok || verr.Err != ErrActiveSessionExists {
		t.Errorf("Start() error = %v; want %v", err, ErrActiveSessionExists)
	}

	// once the timer ran out, the stale session is finalized and a new one starts
	*now = start.Add(30 * time.Minute)
	s2, err := svc.Start(ctx, owner, NewSession{Minutes: 25})
	if err != nil {
		t.Fatalf("Start() after ran-out session failed: %v", err)
	}
	if s2.ID == s.ID {
		t.Error("Start() returned the stale session")
	}
	old, err := svc.Get(ctx, owner, s.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if old.State != StateCompleted {
		t.Errorf("stale session state = %q; want %q", old.State, StateCompleted)
	}
	if want := start.Add(25 * time.Minute); !old.EndedAt.Equal(want) {
		t.Errorf("stale session endedAt = %v; want %v", old.EndedAt, want)
	}
}

func TestService_PauseResume(t *testing.T) {
	start := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, now := setup(t, start)
	ctx := context.Background()
	owner := "owner-1"

	s, err := svc.Start(ctx, owner, NewSession{Minutes: 60})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	*now = start.Add(10 * time.Minute)
	s, err = svc.Pause(ctx, owner, s.ID, "")
	if err != nil {
		t.Fatalf("Pause() failed: %v", err)
	}
	if s.State != StatePaused {
		t.Errorf("Pause() state = %q; want %q", s.State, StatePaused)
	}
	if !s.PausedAt.Equal(*now) {
		t.Errorf("Pause() pausedAt = %v; want %v", s.PausedAt, *now)
	}

	// pausing twice is rejected
	if _, err = svc.Pause(ctx, owner, s.ID, ""); err == nil {
		t.Error("Pause() expected error on a paused session")
	}

	// the countdown is frozen while paused
	*now = start.Add(40 * time.Minute)
	if rem := s.Remaining(*now); rem != 50*time.Minute {
		t.Errorf("Remaining() while paused = %v; want 50m", rem)
	}

	s, err = svc.Resume(ctx, owner, s.ID)
	if err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	if s.State != StateRunning {
		t.Errorf("Resume() state = %q; want %q", s.State, StateRunning)
	}
	if s.PausedTotal != 30*time.Minute {
		t.Errorf("Resume() pausedTotal = %v; want 30m", s.PausedTotal)
	}
	if !s.PausedAt.IsZero() {
		t.Errorf("Resume() pausedAt = %v; want zero", s.PausedAt)
	}

	// resuming a running session is rejected
	if _, err = svc.Resume(ctx, owner, s.ID); err == nil {
		t.Error("Resume() expected error on a running session")
	}

	// pause spans extend the wall-clock end
	*now = start.Add(95 * time.Minute)
	if rem := s.Remaining(*now); rem != 0 {
		t.Errorf("Remaining() = %v; want 0", rem)
	}
	s, err = svc.Complete(ctx, owner, s.ID)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if want := start.Add(90 * time.Minute); !s.EndedAt.Equal(want) {
		t.Errorf("Complete() endedAt = %v; want %v", s.EndedAt, want)
	}
}

func TestService_Cancel(t *testing.T) {
	start := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, now := setup(t, start)
	ctx := context.Background()
	owner := "owner-1"

	s, err := svc.Start(ctx, owner, NewSession{Minutes: 60})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	*now = start.Add(5 * time.Minute)
	s, err = svc.Cancel(ctx, owner, s.ID, "")
	if err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if s.State != StateCancelled {
		t.Errorf("Cancel() state = %q; want %q", s.State, StateCancelled)
	}
	if !s.EndedAt.Equal(*now) {
		t.Errorf("Cancel() endedAt = %v; want %v", s.EndedAt, *now)
	}
	if rem := s.Remaining(*now); rem != 0 {
		t.Errorf("Remaining() after cancel = %v; want 0", rem)
	}

	// cancelling a finished session is rejected
	if _, err = svc.Cancel(ctx, owner, s.ID, ""); err == nil {
		t.Error("Cancel() expected error on a cancelled session")
	}

	// cancelling while paused folds the open pause span into PausedTotal
	s, err = svc.Start(ctx, owner, NewSession{Minutes: 60})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	*now = now.Add(10 * time.Minute)
	if _, err = svc.Pause(ctx, owner, s.ID, ""); err != nil {
		t.Fatalf("Pause() failed: %v", err)
	}
	*now = now.Add(15 * time.Minute)
	s, err = svc.Cancel(ctx, owner, s.ID, "")
	if err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if s.PausedTotal != 15*time.Minute {
		t.Errorf("Cancel() pausedTotal = %v; want 15m", s.PausedTotal)
	}
	if !s.PausedAt.IsZero() {
		t.Errorf("Cancel() pausedAt = %v; want zero", s.PausedAt)
	}
}

func TestService_Complete(t *testing.T) {
	start := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, now := setup(t, start)
	ctx := context.Background()
	owner := "owner-1"

	s, err := svc.Start(ctx, owner, NewSession{Minutes: 25})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// completion is rejected while time remains
	*now = start.Add(20 * time.Minute)
	if _, err = svc.Complete(ctx, owner, s.ID); err == nil {
		t.Error("Complete() expected error while time remains")
	} else if verr, ok := errors.Cause(err).(*core.ValidationError); !ok || verr.Err != errStillRunning {
		t.Errorf("Complete() error = %v; want %v", errors.Cause(err), errStillRunning)
	}

	// the end instant is when the countdown hit zero, not when it was observed
	*now = start.Add(2 * time.Hour)
	s, err = svc.Complete(ctx, owner, s.ID)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if s.State != StateCompleted {
		t.Errorf("Complete() state = %q; want %q", s.State, StateCompleted)
	}
	if want := start.Add(25 * time.Minute); !s.EndedAt.Equal(want) {
		t.Errorf("Complete() endedAt = %v; want %v", s.EndedAt, want)
	}

	if _, err = svc.Complete(ctx, owner, s.ID); err == nil {
		t.Error("Complete() expected error on a completed session")
	}
}

func TestService_Active_finalizesRanOut(t *testing.T) {
	start := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, now := setup(t, start)
	ctx := context.Background()
	owner := "owner-1"

	s, err := svc.Start(ctx, owner, NewSession{Minutes: 25})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	*now = start.Add(10 * time.Minute)
	active, err := svc.Active(ctx, owner)
	if err != nil {
		t.Fatalf("Active() failed: %v", err)
	}
	if active.ID != s.ID || active.State != StateRunning {
		t.Errorf("Active() = %q/%q; want %q/%q", active.ID, active.State, s.ID, StateRunning)
	}

	*now = start.Add(30 * time.Minute)
	active, err = svc.Active(ctx, owner)
	if err != nil {
		t.Fatalf("Active() failed: %v", err)
	}
	if active.State != StateCompleted {
		t.Errorf("Active() state = %q; want %q", active.State, StateCompleted)
	}

	// the slot is free again
	if _, err = svc.Active(ctx, owner); errors.Cause(err) != ErrNotFound {
		t.Errorf("Active() error = %v; want %v", err, ErrNotFound)
	}
}

func TestService_focusLock(t *testing.T) {
	start := time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, now := setup(t, start)
	ctx := context.Background()
	owner := "owner-1"

	s, err := svc.Start(ctx, owner, NewSession{Minutes: 25, Passcode: "2580"})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !s.Locked {
		t.Fatal("Start() with passcode not locked")
	}

	*now = start.Add(5 * time.Minute)
	if _, err = svc.Pause(ctx, owner, s.ID, ""); err == nil {
		t.Error("Pause() expected error without passcode")
	}
	if _, err = svc.Pause(ctx, owner, s.ID, "0000"); err == nil {
		t.Error("Pause() expected error with wrong passcode")
	}
	if _, err = svc.Cancel(ctx, owner, s.ID, ""); err == nil {
		t.Error("Cancel() expected error without passcode")
	}

	s, err = svc.Pause(ctx, owner, s.ID, "2580")
	if err != nil {
		t.Fatalf("Pause() with passcode failed: %v", err)
	}
	if s.State != StatePaused {
		t.Errorf("Pause() state = %q; want %q", s.State, StatePaused)
	}
	// resume needs no passcode
	if _, err = svc.Resume(ctx, owner, s.ID); err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}

	// completion never requires the passcode
	*now = start.Add(40 * time.Minute)
	s, err = svc.Complete(ctx, owner, s.ID)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if s.State != StateCompleted {
		t.Errorf("Complete() state = %q; want %q", s.State, StateCompleted)
	}
}

func TestService_Get_notFound(t *testing.T) {
	svc, _ := setup(t, time.Now())
	ctx := context.Background()

	s, err := svc.Start(ctx, "owner-1", NewSession{Minutes: 25})
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err = svc.Get(ctx, "owner-2", s.ID); errors.Cause(err) != ErrNotFound {
		t.Errorf("Get() error = %v; want %v", err, ErrNotFound)
	}
}
