package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/progress"
)

type ProgressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*ProgressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (repo ProgressRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.db
}

// normalizeDays pads or truncates a stored flags array to exactly 7 days.
func normalizeDays(days []bool) []bool {
	if len(days) == 7 {
		return days
	}
	normalized := make([]bool, 7)
	copy(normalized, days)
	return normalized
}

func (repo ProgressRepository) GetWeek(ctx context.Context, ownerID string, startDate time.Time, exec ...core.DBExecutor) (progress.Week, error) {
	query := repo.db.Rebind(`SELECT days, updated_at FROM week_progress WHERE owner_id = ? AND start_date = ?`)

	week := progress.NewWeek(ownerID, startDate)
	var days pq.BoolArray
	var updatedAt sql.NullTime
	err := repo.getExec(exec).QueryRowContext(ctx, query, ownerID, week.StartDate).Scan(&days, &updatedAt)
	if err == sql.ErrNoRows {
		return week, nil
	}
	if err != nil {
		return progress.Week{}, errors.Wrap(err, "finding week")
	}
	week.Days = normalizeDays(days)
	week.UpdatedAt = updatedAt.Time
	return week, nil
}

func (repo ProgressRepository) UpsertWeek(ctx context.Context, week progress.Week, exec ...core.DBExecutor) (progress.Week, error) {
	query := repo.db.Rebind(`
		INSERT INTO week_progress (owner_id, start_date, days, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, start_date) DO UPDATE SET days = EXCLUDED.days, updated_at = EXCLUDED.updated_at`)
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		week.OwnerID, week.StartDate, pq.BoolArray(week.Days), nullTime(week.UpdatedAt))
	if err != nil {
		return progress.Week{}, errors.Wrap(err, "upserting week")
	}
	return week, nil
}

func (repo ProgressRepository) QueryWeeks(ctx context.Context, ownerID string, from, to time.Time, exec ...core.DBExecutor) ([]progress.Week, error) {
	query := repo.db.Rebind(`
		SELECT start_date, days, updated_at FROM week_progress
		WHERE owner_id = ? AND start_date >= ? AND start_date <= ?
		ORDER BY start_date`)

	rows, err := repo.getExec(exec).QueryContext(ctx, query, ownerID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying weeks")
	}
	defer func() { _ = rows.Close() }()

	var weeks []progress.Week
	for rows.Next() {
		week := progress.Week{OwnerID: ownerID}
		var days pq.BoolArray
		var updatedAt sql.NullTime
		if err = rows.Scan(&week.StartDate, &days, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning week")
		}
		week.StartDate = core.DateOf(week.StartDate)
		week.Days = normalizeDays(days)
		week.UpdatedAt = updatedAt.Time
		weeks = append(weeks, week)
	}
	return weeks, errors.Wrap(rows.Err(), "querying weeks")
}
