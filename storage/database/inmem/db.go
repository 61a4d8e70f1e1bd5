// Package inmemdb provides in-memory repositories for tests and local runs.
package inmemdb

import (
	"sync"
	"time"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/progress"
	"github.com/mawazo/ratiba/core/reminder"
	"github.com/mawazo/ratiba/core/schedule"
	"github.com/mawazo/ratiba/core/study"
	"github.com/mawazo/ratiba/core/user"
)

type (
	DB struct {
		user     *userTable
		reminder *reminderTable
		dayPlan  *dayPlanTable
		week     *weekTable
		session  *sessionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	reminderTable struct {
		sync.RWMutex
		table map[string]*reminder.Reminder
	}

	dayPlanTable struct {
		sync.RWMutex
		table map[dayKey]*schedule.DayPlan
	}

	weekTable struct {
		sync.RWMutex
		table map[dayKey]*progress.Week
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*study.Session
	}

	// dayKey identifies one owner's row for a calendar date.
	dayKey struct {
		ownerID string
		date    string
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		reminder: &reminderTable{table: make(map[string]*reminder.Reminder)},
		dayPlan:  &dayPlanTable{table: make(map[dayKey]*schedule.DayPlan)},
		week:     &weekTable{table: make(map[dayKey]*progress.Week)},
		session:  &sessionTable{table: make(map[string]*study.Session)},
	}
	return db, nil
}

func keyOf(ownerID string, date time.Time) dayKey {
	return dayKey{ownerID: ownerID, date: core.DateOf(date).Format(core.DateFormat)}
}
