package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/reminder"
)

type reminderRepository struct {
	db    *reminderTable
	users *userTable
}

var _ reminder.Repository = (*reminderRepository)(nil) // interface compliance check

func NewReminderRepository(db *DB) reminder.Repository {
	return &reminderRepository{db: db.reminder, users: db.user}
}

func (repo *reminderRepository) query(ownerID string) []reminder.Reminder {
	rems := make([]reminder.Reminder, 0, len(repo.db.table))
	for _, rem := range repo.db.table {
		if ownerID == "" || rem.OwnerID == ownerID {
			rems = append(rems, *rem)
		}
	}
	return rems
}

func (repo *reminderRepository) CreateReminder(_ context.Context, rem reminder.Reminder, _ ...core.DBExecutor) (reminder.Reminder, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[rem.ID] = &rem
	return rem, nil
}

func (repo *reminderRepository) GetReminder(_ context.Context, ownerID, id string, _ ...core.DBExecutor) (reminder.Reminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rem, ok := repo.db.table[id]; ok && rem.OwnerID == ownerID {
		return *rem, nil
	}
	return reminder.Reminder{}, reminder.ErrNotFound
}

func (repo *reminderRepository) GetAutoReminder(_ context.Context, ownerID string, day time.Time, _ ...core.DBExecutor) (reminder.Reminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	day = core.DateOf(day)
	for _, rem := range repo.query(ownerID) {
		if rem.Auto && rem.Day().Equal(day) {
			return rem, nil
		}
	}
	return reminder.Reminder{}, reminder.ErrNotFound
}

func (repo *reminderRepository) QueryReminders(_ context.Context, ownerID string, filter *reminder.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]reminder.Reminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rems := repo.query(ownerID)

	if filter != nil {
		if filter.Search != "" {
			var filtered []reminder.Reminder
			for _, rem := range rems {
				if strings.Contains(strings.ToLower(rem.Title), filter.Search) ||
					strings.Contains(strings.ToLower(rem.Note), filter.Search) {
					filtered = append(filtered, rem)
				}
			}
			rems = filtered
		}
		if rems != nil && !filter.DueFrom.IsZero() {
			var filtered []reminder.Reminder
			timeUTC := filter.DueFrom.UTC()
			for _, rem := range rems {
				if !rem.DueAt.Before(timeUTC) {
					filtered = append(filtered, rem)
				}
			}
			rems = filtered
		}
		if rems != nil && !filter.DueTo.IsZero() {
			var filtered []reminder.Reminder
			timeUTC := filter.DueTo.UTC()
			for _, rem := range rems {
				if !rem.DueAt.After(timeUTC) {
					filtered = append(filtered, rem)
				}
			}
			rems = filtered
		}
		if rems != nil && filter.Done != nil {
			var filtered []reminder.Reminder
			for _, rem := range rems {
				if rem.Done == *filter.Done {
					filtered = append(filtered, rem)
				}
			}
			rems = filtered
		}
		if rems != nil && filter.Auto != nil {
			var filtered []reminder.Reminder
			for _, rem := range rems {
				if rem.Auto == *filter.Auto {
					filtered = append(filtered, rem)
				}
			}
			rems = filtered
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "due_at", Ascending: true}}
	}
	sortReminders(rems, ordering)
	return rems, nil
}

func sortReminders(rems []reminder.Reminder, ordering []core.DBOrdering) {
	sort.SliceStable(rems, func(i, j int) bool {
		// later terms break ties, matching a multi-column ORDER BY
		for _, ord := range ordering {
			a, b := rems[i], rems[j]
			if !ord.Ascending {
				a, b = b, a
			}
			var less, more bool
			switch ord.Field {
			case "title":
				less, more = a.Title < b.Title, a.Title > b.Title
			case "created_at":
				less, more = a.CreatedAt.Before(b.CreatedAt), b.CreatedAt.Before(a.CreatedAt)
			default: // due_at
				less, more = a.DueAt.Before(b.DueAt), b.DueAt.Before(a.DueAt)
			}
			if less {
				return true
			}
			if more {
				return false
			}
		}
		return false
	})
}

func (repo *reminderRepository) SaveReminder(_ context.Context, rem reminder.Reminder, _ ...core.DBExecutor) (reminder.Reminder, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[rem.ID]
	if !ok || orig.OwnerID != rem.OwnerID {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	repo.db.table[rem.ID] = &rem
	return rem, nil
}

func (repo *reminderRepository) DeleteRemindersByID(_ context.Context, ownerID string, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if rem, ok := repo.db.table[id]; ok && rem.OwnerID == ownerID {
			delete(repo.db.table, id)
		}
	}
	return nil
}

func (repo *reminderRepository) QueryDueReminders(_ context.Context, asOf time.Time, _ ...core.DBExecutor) ([]reminder.DueReminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	var due []reminder.DueReminder
	for _, rem := range repo.query("") {
		if rem.Done || !rem.NotifiedAt.IsZero() || rem.DueAt.After(asOf) {
			continue
		}
		owner, ok := repo.users.table[rem.OwnerID]
		if !ok || !owner.Active() {
			continue
		}
		due = append(due, reminder.DueReminder{
			Reminder:   rem,
			OwnerName:  owner.Name,
			OwnerEmail: owner.Email,
		})
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	return due, nil
}

func (repo *reminderRepository) MarkNotified(_ context.Context, ids []string, at time.Time, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if rem, ok := repo.db.table[id]; ok {
			rem.NotifiedAt = at.UTC()
		}
	}
	return nil
}
