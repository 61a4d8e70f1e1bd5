package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
)

var (
	// errors
	ErrNotFound = errors.New("reminder not found")
)

type (
	Repository interface {
		CreateReminder(ctx context.Context, rem Reminder, exec ...core.DBExecutor) (Reminder, error)
		GetReminder(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (Reminder, error)
		// GetAutoReminder returns the single auto reminder of (ownerID, day), if any.
		GetAutoReminder(ctx context.Context, ownerID string, day time.Time, exec ...core.DBExecutor) (Reminder, error)
		// QueryReminders applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Title or Note.
		QueryReminders(ctx context.Context, ownerID string, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Reminder, error)
		// SaveReminder persists all fields of an existing Reminder.
		SaveReminder(ctx context.Context, rem Reminder, exec ...core.DBExecutor) (Reminder, error)
		DeleteRemindersByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error

		// QueryDueReminders returns reminders across all owners that are due at
		// asOf, not done and not yet notified, joined with owner contacts.
		QueryDueReminders(ctx context.Context, asOf time.Time, exec ...core.DBExecutor) ([]DueReminder, error)
		MarkNotified(ctx context.Context, ids []string, at time.Time, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository

		// serializes SyncAuto's get-then-write so concurrent note edits for
		// one day cannot double-create the auto reminder
		syncMu sync.Mutex
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ownerID string, nr NewReminder) (Reminder, error) {
	now := time.Now().UTC()
	rem := Reminder{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     nr.Title,
		DueAt:     nr.DueAt.UTC(),
		Note:      nr.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateReminder(ctx, rem)
}

func (svc *Service) Get(ctx context.Context, ownerID, id string) (Reminder, error) {
	return svc.repo.GetReminder(ctx, ownerID, id)
}

func (svc *Service) Query(ctx context.Context, ownerID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Reminder, error) {
	return svc.repo.QueryReminders(ctx, ownerID, filter, ordering)
}

// Update applies ur to the reminder. Editing the content of an auto reminder
// flips it to a user reminder so a later schedule edit does not clobber the
// manual change.
func (svc *Service) Update(ctx context.Context, ownerID, id string, ur UpdateReminder) (Reminder, error) {
	rem, err := svc.repo.GetReminder(ctx, ownerID, id)
	if err != nil {
		return Reminder{}, err
	}

	if ur.Title != "" {
		rem.Title = ur.Title
	}
	if !ur.DueAt.IsZero() {
		rem.DueAt = ur.DueAt.UTC()
	}
	if ur.Note != nil {
		rem.Note = *ur.Note
	}
	if ur.Done != nil {
		rem.Done = *ur.Done
	}
	if rem.Auto && ur.touchesContent() {
		rem.Auto = false
	}
	rem.UpdatedAt = time.Now().UTC()

	return svc.repo.SaveReminder(ctx, rem)
}

func (svc *Service) SetDone(ctx context.Context, ownerID, id string, done bool) (Reminder, error) {
	rem, err := svc.repo.GetReminder(ctx, ownerID, id)
	if err != nil {
		return Reminder{}, err
	}
	rem.Done = done
	rem.UpdatedAt = time.Now().UTC()
	return svc.repo.SaveReminder(ctx, rem)
}

func (svc *Service) Delete(ctx context.Context, ownerID string, ids ...string) error {
	return svc.repo.DeleteRemindersByID(ctx, ownerID, ids)
}

// SyncAuto reconciles the auto reminder of (ownerID, day) with the day's first
// non-empty hourly note. With has=false any existing auto reminder for the day
// is deleted; otherwise it is created or re-pointed at date+hour with the note
// text as title. User reminders are never touched.
func (svc *Service) SyncAuto(ctx context.Context, ownerID string, day time.Time, hour int, note string, has bool) error {
	svc.syncMu.Lock()
	defer svc.syncMu.Unlock()

	day = core.DateOf(day)
	existing, err := svc.repo.GetAutoReminder(ctx, ownerID, day)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "getting auto reminder")
	}
	found := err == nil

	if !has {
		if !found {
			return nil
		}
		return svc.repo.DeleteRemindersByID(ctx, ownerID, []string{existing.ID})
	}

	now := time.Now().UTC()
	dueAt := day.Add(time.Duration(hour) * time.Hour)

	if !found {
		_, err = svc.repo.CreateReminder(ctx, Reminder{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			Title:     note,
			DueAt:     dueAt,
			Auto:      true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	}

	if existing.Title == note && existing.DueAt.Equal(dueAt) {
		return nil
	}
	existing.Title = note
	existing.DueAt = dueAt
	existing.UpdatedAt = now
	_, err = svc.repo.SaveReminder(ctx, existing)
	return err
}
