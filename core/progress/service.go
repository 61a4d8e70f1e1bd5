package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
)

type (
	Repository interface {
		// GetWeek returns the week of (ownerID, startDate); an absent week
		// reads as an all-false Week, never an error.
		GetWeek(ctx context.Context, ownerID string, startDate time.Time, exec ...core.DBExecutor) (Week, error)
		UpsertWeek(ctx context.Context, week Week, exec ...core.DBExecutor) (Week, error)
		// QueryWeeks returns the stored weeks of ownerID with StartDate in
		// [from, to], ordered by StartDate.
		QueryWeeks(ctx context.Context, ownerID string, from, to time.Time, exec ...core.DBExecutor) ([]Week, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the week containing date.
func (svc *Service) Get(ctx context.Context, ownerID string, date time.Time) (Week, error) {
	return svc.repo.GetWeek(ctx, ownerID, core.WeekStart(date))
}

// Toggle flips date's flag within its week and returns the updated week.
func (svc *Service) Toggle(ctx context.Context, ownerID string, date time.Time) (Week, error) {
	week, err := svc.Get(ctx, ownerID, date)
	if err != nil {
		return Week{}, errors.Wrap(err, "getting week")
	}
	idx := core.WeekdayIndex(date)
	week.Days[idx] = !week.Days[idx]
	week.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertWeek(ctx, week)
}

// Set sets date's flag explicitly and returns the updated week.
func (svc *Service) Set(ctx context.Context, ownerID string, date time.Time, met bool) (Week, error) {
	week, err := svc.Get(ctx, ownerID, date)
	if err != nil {
		return Week{}, errors.Wrap(err, "getting week")
	}
	week.Days[core.WeekdayIndex(date)] = met
	week.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertWeek(ctx, week)
}

// Summarize returns per-week quota counts for weeks starting in [from, to].
func (svc *Service) Summarize(ctx context.Context, ownerID string, from, to time.Time) ([]Summary, error) {
	weeks, err := svc.repo.QueryWeeks(ctx, ownerID, core.WeekStart(from), core.WeekStart(to))
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(weeks))
	for _, w := range weeks {
		summaries = append(summaries, Summary{StartDate: w.StartDate, DaysMet: w.MetCount()})
	}
	return summaries, nil
}
