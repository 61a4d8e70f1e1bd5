package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/reminder"
)

var errHourOutOfRange = fmt.Errorf("hour is out of range [%d, %d]", MinHour, MaxHour)

type (
	Repository interface {
		// GetDayPlan returns the plan of (ownerID, date); an absent day reads
		// as an empty plan, never an error. A corrupt persisted notes payload
		// decodes to an empty plan silently.
		GetDayPlan(ctx context.Context, ownerID string, date time.Time, exec ...core.DBExecutor) (DayPlan, error)
		// UpsertDayPlan persists the plan; a plan with no notes deletes the row.
		UpsertDayPlan(ctx context.Context, plan DayPlan, exec ...core.DBExecutor) (DayPlan, error)
		// QueryDayPlans returns the non-empty plans of ownerID in [from, to],
		// ordered by date.
		QueryDayPlans(ctx context.Context, ownerID string, from, to time.Time, exec ...core.DBExecutor) ([]DayPlan, error)
	}

	Service struct {
		repo   Repository
		remSvc *reminder.Service
	}
)

func NewService(repo Repository, remSvc *reminder.Service) *Service {
	return &Service{repo: repo, remSvc: remSvc}
}

func (svc *Service) Get(ctx context.Context, ownerID string, date time.Time) (DayPlan, error) {
	return svc.repo.GetDayPlan(ctx, ownerID, core.DateOf(date))
}

func (svc *Service) Query(ctx context.Context, ownerID string, from, to time.Time) ([]DayPlan, error) {
	return svc.repo.QueryDayPlans(ctx, ownerID, core.DateOf(from), core.DateOf(to))
}

// SetNote sets or clears (blank note) a single hour's note and reconciles the
// day's auto reminder.
func (svc *Service) SetNote(ctx context.Context, ownerID string, date time.Time, hour int, note string) (DayPlan, error) {
	if hour < MinHour || hour > MaxHour {
		return DayPlan{}, core.NewValidationError(errHourOutOfRange, core.FieldError{
			Field: "hour", Error: errHourOutOfRange.Error(),
		})
	}

	plan, err := svc.repo.GetDayPlan(ctx, ownerID, core.DateOf(date))
	if err != nil {
		return DayPlan{}, errors.Wrap(err, "getting day plan")
	}

	note = core.CleanString(note)
	if note == "" {
		delete(plan.Notes, hour)
	} else {
		plan.Notes[hour] = note
	}
	return svc.save(ctx, plan)
}

// Replace swaps a whole day's notes and reconciles the day's auto reminder.
func (svc *Service) Replace(ctx context.Context, ownerID string, date time.Time, notes map[int]string) (DayPlan, error) {
	plan := NewDayPlan(ownerID, date)
	for h, n := range notes {
		if h < MinHour || h > MaxHour {
			return DayPlan{}, core.NewValidationError(errHourOutOfRange, core.FieldError{
				Field: "notes", Error: fmt.Sprintf("hour %d is out of range [%d, %d]", h, MinHour, MaxHour),
			})
		}
		plan.Notes[h] = n
	}
	return svc.save(ctx, plan)
}

func (svc *Service) save(ctx context.Context, plan DayPlan) (DayPlan, error) {
	plan.clean()
	plan.UpdatedAt = time.Now().UTC()

	saved, err := svc.repo.UpsertDayPlan(ctx, plan)
	if err != nil {
		return DayPlan{}, errors.Wrap(err, "saving day plan")
	}

	// keep the day's auto reminder in sync with the first non-empty note
	hour, note, ok := saved.FirstNote()
	if err = svc.remSvc.SyncAuto(ctx, saved.OwnerID, saved.Date, hour, note, ok); err != nil {
		return DayPlan{}, errors.Wrap(err, "syncing auto reminder")
	}
	return saved, nil
}
