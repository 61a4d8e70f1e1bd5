package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/progress"
)

type progressRepository struct {
	db *weekTable
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db.week}
}

func (repo *progressRepository) GetWeek(_ context.Context, ownerID string, startDate time.Time, _ ...core.DBExecutor) (progress.Week, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if week, ok := repo.db.table[keyOf(ownerID, startDate)]; ok {
		return copyWeek(*week), nil
	}
	return progress.NewWeek(ownerID, startDate), nil
}

func (repo *progressRepository) UpsertWeek(_ context.Context, week progress.Week, _ ...core.DBExecutor) (progress.Week, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := copyWeek(week)
	repo.db.table[keyOf(week.OwnerID, week.StartDate)] = &stored
	return week, nil
}

func (repo *progressRepository) QueryWeeks(_ context.Context, ownerID string, from, to time.Time, _ ...core.DBExecutor) ([]progress.Week, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	from, to = core.DateOf(from), core.DateOf(to)

	var weeks []progress.Week
	for _, week := range repo.db.table {
		if week.OwnerID != ownerID || week.StartDate.Before(from) || week.StartDate.After(to) {
			continue
		}
		weeks = append(weeks, copyWeek(*week))
	}
	sort.SliceStable(weeks, func(i, j int) bool { return weeks[i].StartDate.Before(weeks[j].StartDate) })
	return weeks, nil
}

func copyWeek(week progress.Week) progress.Week {
	days := make([]bool, len(week.Days))
	copy(days, week.Days)
	week.Days = days
	return week
}
