package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/user"
)

type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo UserRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.db
}

const userCols = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

func scanUser(row interface{ Scan(...interface{}) error }) (user.User, error) {
	var usr user.User
	var isActive sql.NullBool
	var createdAt, updatedAt, lastLogin sql.NullTime
	err := row.Scan(
		&usr.ID, &usr.Name, &usr.Username, &usr.Email, &isActive,
		pq.Array(&usr.Roles), &usr.PasswordHash, &createdAt, &updatedAt, &lastLogin,
	)
	if err != nil {
		return user.User{}, err
	}
	if isActive.Valid {
		usr.SetActive(isActive.Bool)
	}
	usr.CreatedAt = createdAt.Time
	usr.UpdatedAt = updatedAt.Time
	usr.LastLogin = lastLogin.Time
	return usr, nil
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapUserNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		exclIDs = append(exclIDs, u.ID)
	}

	check := func(col, val string, dupErr error) error {
		if val == "" {
			return nil
		}
		query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE ` + col + ` = ?`
		args := []interface{}{val}
		if len(exclIDs) > 0 {
			q, inArgs, err := sqlx.In(` AND id NOT IN (?)`, exclIDs)
			if err != nil {
				return errors.Wrap(err, "building uniqueness query")
			}
			query += q
			args = append(args, inArgs...)
		}
		query += `)`

		var exists bool
		if err := repo.getExec(exec).QueryRowContext(ctx, repo.db.Rebind(query), args...).Scan(&exists); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return dupErr
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo UserRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	query := repo.db.Rebind(`
		INSERT INTO "user" (` + userCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.IsActive,
		pq.Array(usr.Roles), usr.PasswordHash,
		nullTime(usr.CreatedAt), nullTime(usr.UpdatedAt), nullTime(usr.LastLogin),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo UserRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	query := `SELECT ` + userCols + ` FROM "user"`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleCond := `(`
			for i, role := range filter.Roles {
				if i > 0 {
					roleCond += ` OR `
				}
				roleCond += `EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ?)`
				args = append(args, role+"%")
			}
			roleCond += `)`
			conds = append(conds, roleCond)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	query += whereClause(conds) + orderClause(ordering)

	rows, err := repo.getExec(exec).QueryContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	defer func() { _ = rows.Close() }()

	var users []user.User
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning user")
		}
		users = append(users, usr)
	}
	return users, errors.Wrap(rows.Err(), "querying users")
}

func (repo UserRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	query := `SELECT ` + userCols + ` FROM "user" WHERE `
	var args []interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		query += `id = ?`
		args = append(args, filter.ID)
	case filter.Username != "":
		query += `username = ?`
		args = append(args, filter.Username)
	case filter.Email != "":
		query += `email = ?`
		args = append(args, filter.Email)
	case filter.UsernameOrEmail != nil:
		uname, email := usernameOrEmail(filter.UsernameOrEmail)
		query += `(username = ? OR email = ?)`
		args = append(args, uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	usr, err := scanUser(repo.getExec(exec).QueryRowContext(ctx, repo.db.Rebind(query), args...))
	if err != nil {
		return user.User{}, trapUserNoRowsErr(err, "finding user")
	}
	return usr, nil
}

func (repo UserRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	// only save set fields
	var sets []string
	var args []interface{}
	set := func(col string, val interface{}) {
		sets = append(sets, col+` = ?`)
		args = append(args, val)
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.IsActive != nil {
		set("is_active", *usr.IsActive)
	}
	if usr.Roles != nil {
		set("roles", pq.Array(usr.Roles))
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if !usr.UpdatedAt.IsZero() {
		set("updated_at", usr.UpdatedAt.UTC())
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin.UTC())
	}
	if len(sets) == 0 {
		return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
	}

	query := `UPDATE "user" SET ` + joinSets(sets) + ` WHERE id = ?`
	args = append(args, usr.ID)

	res, err := repo.getExec(exec).ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}

func (repo UserRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		now := time.Now().UTC()
		usr.CreatedAt = now
		usr.UpdatedAt = now
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo UserRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.getExec(exec).ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func usernameOrEmail(vals []string) (uname, email string) {
	uname = vals[0]
	if len(vals) == 2 {
		email = vals[1]
	}
	if email == "" {
		email = uname
	} else if uname == "" {
		uname = email
	}
	return uname, email
}
