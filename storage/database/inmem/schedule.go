package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/schedule"
)

type scheduleRepository struct {
	db *dayPlanTable
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db.dayPlan}
}

func (repo *scheduleRepository) GetDayPlan(_ context.Context, ownerID string, date time.Time, _ ...core.DBExecutor) (schedule.DayPlan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if plan, ok := repo.db.table[keyOf(ownerID, date)]; ok {
		return copyPlan(*plan), nil
	}
	return schedule.NewDayPlan(ownerID, date), nil
}

func (repo *scheduleRepository) UpsertDayPlan(_ context.Context, plan schedule.DayPlan, _ ...core.DBExecutor) (schedule.DayPlan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := keyOf(plan.OwnerID, plan.Date)
	if plan.IsEmpty() {
		delete(repo.db.table, key)
		return plan, nil
	}
	stored := copyPlan(plan)
	repo.db.table[key] = &stored
	return plan, nil
}

func (repo *scheduleRepository) QueryDayPlans(_ context.Context, ownerID string, from, to time.Time, _ ...core.DBExecutor) ([]schedule.DayPlan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	from, to = core.DateOf(from), core.DateOf(to)

	var plans []schedule.DayPlan
	for _, plan := range repo.db.table {
		if plan.OwnerID != ownerID || plan.Date.Before(from) || plan.Date.After(to) {
			continue
		}
		plans = append(plans, copyPlan(*plan))
	}
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].Date.Before(plans[j].Date) })
	return plans, nil
}

func copyPlan(plan schedule.DayPlan) schedule.DayPlan {
	notes := make(map[int]string, len(plan.Notes))
	for h, n := range plan.Notes {
		notes[h] = n
	}
	plan.Notes = notes
	return plan
}
