package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/study"
)

type StudyRepository struct {
	db *sqlx.DB
}

var _ study.Repository = (*StudyRepository)(nil) // interface compliance check

func NewStudyRepository(db *sqlx.DB) *StudyRepository {
	return &StudyRepository{db: db}
}

func (repo StudyRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.db
}

const sessionCols = `id, owner_id, duration_ns, state, started_at, paused_at, paused_total, ended_at, locked, passcode_hash, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (study.Session, error) {
	var s study.Session
	var durationNS, pausedTotal int64
	var startedAt, pausedAt, endedAt, createdAt, updatedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.OwnerID, &durationNS, &s.State, &startedAt, &pausedAt,
		&pausedTotal, &endedAt, &s.Locked, &s.PasscodeHash, &createdAt, &updatedAt,
	)
	if err != nil {
		return study.Session{}, err
	}
	s.Duration = time.Duration(durationNS)
	s.PausedTotal = time.Duration(pausedTotal)
	s.StartedAt = startedAt.Time
	s.PausedAt = pausedAt.Time
	s.EndedAt = endedAt.Time
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return s, nil
}

func trapSessionNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return study.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo StudyRepository) CreateSession(ctx context.Context, s study.Session, exec ...core.DBExecutor) (study.Session, error) {
	query := repo.db.Rebind(`
		INSERT INTO study_session (` + sessionCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		s.ID, s.OwnerID, int64(s.Duration), s.State,
		nullTime(s.StartedAt), nullTime(s.PausedAt), int64(s.PausedTotal), nullTime(s.EndedAt),
		s.Locked, s.PasscodeHash, nullTime(s.CreatedAt), nullTime(s.UpdatedAt),
	)
	if err != nil {
		return study.Session{}, errors.Wrap(err, "inserting session")
	}
	return s, nil
}

func (repo StudyRepository) GetSession(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (study.Session, error) {
	query := repo.db.Rebind(`SELECT ` + sessionCols + ` FROM study_session WHERE owner_id = ? AND id = ?`)
	s, err := scanSession(repo.getExec(exec).QueryRowContext(ctx, query, ownerID, id))
	if err != nil {
		return study.Session{}, trapSessionNoRowsErr(err, "finding session")
	}
	return s, nil
}

func (repo StudyRepository) GetActiveSession(ctx context.Context, ownerID string, exec ...core.DBExecutor) (study.Session, error) {
	query := repo.db.Rebind(`
		SELECT ` + sessionCols + ` FROM study_session
		WHERE owner_id = ? AND state IN ('running', 'paused')`)
	s, err := scanSession(repo.getExec(exec).QueryRowContext(ctx, query, ownerID))
	if err != nil {
		return study.Session{}, trapSessionNoRowsErr(err, "finding active session")
	}
	return s, nil
}

func (repo StudyRepository) SaveSession(ctx context.Context, s study.Session, exec ...core.DBExecutor) (study.Session, error) {
	query := repo.db.Rebind(`
		UPDATE study_session
		SET state = ?, paused_at = ?, paused_total = ?, ended_at = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`)
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		s.State, nullTime(s.PausedAt), int64(s.PausedTotal), nullTime(s.EndedAt),
		nullTime(s.UpdatedAt), s.OwnerID, s.ID,
	)
	if err != nil {
		return study.Session{}, errors.Wrap(err, "updating session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return study.Session{}, study.ErrNotFound
	}
	return s, nil
}

func (repo StudyRepository) QuerySessions(ctx context.Context, ownerID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]study.Session, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "started_at", Ascending: false}}
	}
	query := `SELECT ` + sessionCols + ` FROM study_session WHERE owner_id = ?` + orderClause(ordering)

	rows, err := repo.getExec(exec).QueryContext(ctx, repo.db.Rebind(query), ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	defer func() { _ = rows.Close() }()

	var sessions []study.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning session")
		}
		sessions = append(sessions, s)
	}
	return sessions, errors.Wrap(rows.Err(), "querying sessions")
}
