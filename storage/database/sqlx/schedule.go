package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/schedule"
)

type ScheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*ScheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (repo ScheduleRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.db
}

// decodeNotes unmarshals the JSONB notes payload. A corrupt payload decodes
// to an empty map silently.
func decodeNotes(raw []byte) map[int]string {
	notes := make(map[int]string)
	var keyed map[string]string
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return notes
	}
	for k, v := range keyed {
		h, err := strconv.Atoi(k)
		if err != nil {
			return make(map[int]string)
		}
		notes[h] = v
	}
	return notes
}

func encodeNotes(notes map[int]string) ([]byte, error) {
	keyed := make(map[string]string, len(notes))
	for h, n := range notes {
		keyed[strconv.Itoa(h)] = n
	}
	return json.Marshal(keyed)
}

func (repo ScheduleRepository) GetDayPlan(ctx context.Context, ownerID string, date time.Time, exec ...core.DBExecutor) (schedule.DayPlan, error) {
	query := repo.db.Rebind(`SELECT notes, updated_at FROM day_plan WHERE owner_id = ? AND date = ?`)

	var raw []byte
	var updatedAt sql.NullTime
	err := repo.getExec(exec).QueryRowContext(ctx, query, ownerID, core.DateOf(date)).Scan(&raw, &updatedAt)
	if err == sql.ErrNoRows {
		return schedule.NewDayPlan(ownerID, date), nil
	}
	if err != nil {
		return schedule.DayPlan{}, errors.Wrap(err, "finding day plan")
	}

	plan := schedule.NewDayPlan(ownerID, date)
	plan.Notes = decodeNotes(raw)
	plan.UpdatedAt = updatedAt.Time
	return plan, nil
}

func (repo ScheduleRepository) UpsertDayPlan(ctx context.Context, plan schedule.DayPlan, exec ...core.DBExecutor) (schedule.DayPlan, error) {
	if len(plan.Notes) == 0 {
		query := repo.db.Rebind(`DELETE FROM day_plan WHERE owner_id = ? AND date = ?`)
		if _, err := repo.getExec(exec).ExecContext(ctx, query, plan.OwnerID, plan.Date); err != nil {
			return schedule.DayPlan{}, errors.Wrap(err, "deleting day plan")
		}
		return plan, nil
	}

	raw, err := encodeNotes(plan.Notes)
	if err != nil {
		return schedule.DayPlan{}, errors.Wrap(err, "encoding notes")
	}
	query := repo.db.Rebind(`
		INSERT INTO day_plan (owner_id, date, notes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, date) DO UPDATE SET notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`)
	if _, err = repo.getExec(exec).ExecContext(ctx, query, plan.OwnerID, plan.Date, raw, nullTime(plan.UpdatedAt)); err != nil {
		return schedule.DayPlan{}, errors.Wrap(err, "upserting day plan")
	}
	return plan, nil
}

func (repo ScheduleRepository) QueryDayPlans(ctx context.Context, ownerID string, from, to time.Time, exec ...core.DBExecutor) ([]schedule.DayPlan, error) {
	query := repo.db.Rebind(`
		SELECT date, notes, updated_at FROM day_plan
		WHERE owner_id = ? AND date >= ? AND date <= ?
		ORDER BY date`)

	rows, err := repo.getExec(exec).QueryContext(ctx, query, ownerID, core.DateOf(from), core.DateOf(to))
	if err != nil {
		return nil, errors.Wrap(err, "querying day plans")
	}
	defer func() { _ = rows.Close() }()

	var plans []schedule.DayPlan
	for rows.Next() {
		var date time.Time
		var raw []byte
		var updatedAt sql.NullTime
		if err = rows.Scan(&date, &raw, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning day plan")
		}
		plan := schedule.NewDayPlan(ownerID, date)
		plan.Notes = decodeNotes(raw)
		plan.UpdatedAt = updatedAt.Time
		plans = append(plans, plan)
	}
	return plans, errors.Wrap(rows.Err(), "querying day plans")
}
