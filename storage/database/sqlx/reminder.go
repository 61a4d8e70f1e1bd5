package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/reminder"
)

type ReminderRepository struct {
	db *sqlx.DB
}

var _ reminder.Repository = (*ReminderRepository)(nil) // interface compliance check

func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (repo ReminderRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.db
}

const reminderCols = `id, owner_id, title, due_at, note, auto, done, notified_at, created_at, updated_at`

func scanReminder(row interface{ Scan(...interface{}) error }) (reminder.Reminder, error) {
	var rem reminder.Reminder
	var notifiedAt, createdAt, updatedAt sql.NullTime
	err := row.Scan(
		&rem.ID, &rem.OwnerID, &rem.Title, &rem.DueAt, &rem.Note,
		&rem.Auto, &rem.Done, &notifiedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return reminder.Reminder{}, err
	}
	rem.DueAt = rem.DueAt.UTC()
	rem.NotifiedAt = notifiedAt.Time
	rem.CreatedAt = createdAt.Time
	rem.UpdatedAt = updatedAt.Time
	return rem, nil
}

func trapReminderNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return reminder.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo ReminderRepository) CreateReminder(ctx context.Context, rem reminder.Reminder, exec ...core.DBExecutor) (reminder.Reminder, error) {
	query := repo.db.Rebind(`
		INSERT INTO reminder (` + reminderCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		rem.ID, rem.OwnerID, rem.Title, rem.DueAt.UTC(), rem.Note,
		rem.Auto, rem.Done, nullTime(rem.NotifiedAt), nullTime(rem.CreatedAt), nullTime(rem.UpdatedAt),
	)
	if err != nil {
		return reminder.Reminder{}, errors.Wrap(err, "inserting reminder")
	}
	return rem, nil
}

func (repo ReminderRepository) GetReminder(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (reminder.Reminder, error) {
	query := repo.db.Rebind(`SELECT ` + reminderCols + ` FROM reminder WHERE owner_id = ? AND id = ?`)
	rem, err := scanReminder(repo.getExec(exec).QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		return reminder.Reminder{}, trapReminderNoRowsErr(err, "finding reminder")
	}
	return rem, nil
}

func (repo ReminderRepository) GetAutoReminder(ctx context.Context, ownerID string, day time.Time, exec ...core.DBExecutor) (reminder.Reminder, error) {
	query := repo.db.Rebind(`SELECT ` + reminderCols + ` FROM reminder WHERE owner_id = ? AND auto AND due_at::DATE = ?`)
	rem, err := scanReminder(repo.getExec(exec).QueryRowContext(ctx, query, ownerID, core.DateOf(day)))
	if err != nil {
		return reminder.Reminder{}, trapReminderNoRowsErr(err, "finding auto reminder")
	}
	return rem, nil
}

func (repo ReminderRepository) QueryReminders(ctx context.Context, ownerID string, filter *reminder.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]reminder.Reminder, error) {
	query := `SELECT ` + reminderCols + ` FROM reminder`
	conds := []string{`owner_id = ?`}
	args := []interface{}{ownerID}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(title ILIKE ? OR note ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if !filter.DueFrom.IsZero() {
			conds = append(conds, `due_at >= ?`)
			args = append(args, filter.DueFrom.UTC())
		}
		if !filter.DueTo.IsZero() {
			conds = append(conds, `due_at <= ?`)
			args = append(args, filter.DueTo.UTC())
		}
		if filter.Done != nil {
			conds = append(conds, `done = ?`)
			args = append(args, *filter.Done)
		}
		if filter.Auto != nil {
			conds = append(conds, `auto = ?`)
			args = append(args, *filter.Auto)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "due_at", Ascending: true}}
	}
	query += whereClause(conds) + orderClause(ordering)

	rows, err := repo.getExec(exec).QueryContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying reminders")
	}
	defer func() { _ = rows.Close() }()

	var rems []reminder.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning reminder")
		}
		rems = append(rems, rem)
	}
	return rems, errors.Wrap(rows.Err(), "querying reminders")
}

func (repo ReminderRepository) SaveReminder(ctx context.Context, rem reminder.Reminder, exec ...core.DBExecutor) (reminder.Reminder, error) {
	query := repo.db.Rebind(`
		UPDATE reminder
		SET title = ?, due_at = ?, note = ?, auto = ?, done = ?, notified_at = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`)
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		rem.Title, rem.DueAt.UTC(), rem.Note, rem.Auto, rem.Done,
		nullTime(rem.NotifiedAt), nullTime(rem.UpdatedAt), rem.OwnerID, rem.ID,
	)
	if err != nil {
		return reminder.Reminder{}, errors.Wrap(err, "updating reminder")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	return rem, nil
}

func (repo ReminderRepository) DeleteRemindersByID(ctx context.Context, ownerID string, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM reminder WHERE owner_id = ? AND id IN (?)`, ownerID, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting reminders")
	}
	return nil
}

func (repo ReminderRepository) QueryDueReminders(ctx context.Context, asOf time.Time, exec ...core.DBExecutor) ([]reminder.DueReminder, error) {
	query := repo.db.Rebind(`
		SELECT r.id, r.owner_id, r.title, r.due_at, r.note, r.auto, r.done, r.notified_at, r.created_at, r.updated_at,
		       u.name, u.email
		FROM reminder r
		JOIN "user" u ON u.id = r.owner_id
		WHERE r.due_at <= ? AND NOT r.done AND r.notified_at IS NULL AND u.is_active
		ORDER BY r.owner_id, r.due_at`)

	rows, err := repo.getExec(exec).QueryContext(ctx, query, asOf.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "querying due reminders")
	}
	defer func() { _ = rows.Close() }()

	var due []reminder.DueReminder
	for rows.Next() {
		var dr reminder.DueReminder
		var notifiedAt, createdAt, updatedAt sql.NullTime
		err = rows.Scan(
			&dr.ID, &dr.OwnerID, &dr.Title, &dr.DueAt, &dr.Note,
			&dr.Auto, &dr.Done, &notifiedAt, &createdAt, &updatedAt,
			&dr.OwnerName, &dr.OwnerEmail,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scanning due reminder")
		}
		dr.DueAt = dr.DueAt.UTC()
		dr.NotifiedAt = notifiedAt.Time
		dr.CreatedAt = createdAt.Time
		dr.UpdatedAt = updatedAt.Time
		due = append(due, dr)
	}
	return due, errors.Wrap(rows.Err(), "querying due reminders")
}

func (repo ReminderRepository) MarkNotified(ctx context.Context, ids []string, at time.Time, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE reminder SET notified_at = ? WHERE id IN (?)`, at.UTC(), ids)
	if err != nil {
		return errors.Wrap(err, "building update query")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "marking reminders notified")
	}
	return nil
}
