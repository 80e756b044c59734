package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

const userColumns = "id, name, email, is_active, roles, password_hash, created_at, updated_at, last_login"

var userOrderings = map[string]string{"name": "name", "email": "email", "created_at": "created_at"}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		ids = append(ids, usr.ID)
	}

	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1) AND NOT (id::text = ANY($2::text[])))"
	if err := repo.exec.GetContext(ctx, &exists, q, email, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking email")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := "INSERT INTO users (" + userColumns + ") VALUES " +
		"(:id, :name, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)"
	if _, err := sqlxNamedExec(ctx, repo.exec, q, newUserRow(usr)); err != nil {
		if pqCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getBy(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	if err := repo.exec.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE "+where, arg); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getBy(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getBy(ctx, "lower(email) = lower($1)", email)
}

func (repo *userRepository) QueryUsers(ctx context.Context, qf user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var f filter
	if qf.Search != "" {
		pattern := likePattern(qf.Search)
		f.add("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
	}
	if len(qf.Roles) > 0 {
		f.add("roles && ?::text[]", pq.Array(qf.Roles))
	}
	if qf.IsActive != nil {
		f.add("is_active = ?", *qf.IsActive)
	}

	q := "SELECT " + userColumns + " FROM users" + f.String() +
		core.OrderByClause(core.CleanOrderings(ordering, userOrderings), "created_at DESC")
	rows := make([]userRow, 0)
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), f.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := "UPDATE users SET name = :name, email = :email, is_active = :is_active, roles = :roles, " +
		"password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login WHERE id = :id"
	res, err := sqlxNamedExec(ctx, repo.exec, q, newUserRow(usr))
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.exec.ExecContext(ctx, "DELETE FROM users WHERE id::text = ANY($1::text[])", pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}
