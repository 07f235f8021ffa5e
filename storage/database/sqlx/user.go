package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/certdesk/core/user"
)

const userColumns = `id, role, name, username, email, class_id, dept, club_name, password_hash, created_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	Role         string      `db:"role"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	ClassID      null.String `db:"class_id"`
	Dept         null.String `db:"dept"`
	ClubName     null.String `db:"club_name"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Role:         string(usr.Role),
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		ClassID:      null.NewString(usr.ClassID, usr.ClassID != ""),
		Dept:         null.NewString(usr.Dept, usr.Dept != ""),
		ClubName:     null.NewString(usr.ClubName, usr.ClubName != ""),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		LastLogin:    null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

func (row userRow) user() user.User {
	return user.User{
		ID:           row.ID,
		Role:         user.Role(row.Role),
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		ClassID:      row.ClassID.String,
		Dept:         row.Dept.String,
		ClubName:     row.ClubName.String,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string) error {
	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1) OR lower(email) = lower($2)`
	if err := repo.db.SelectContext(ctx, &rows, q, username, email); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, row := range rows {
		if username != "" && strings.EqualFold(row.Username.String, username) {
			return user.ErrUsernameExists
		}
		if email != "" && strings.EqualFold(row.Email.String, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if usr.ID == "" {
		// serialize ID allocation
		if _, err = tx.ExecContext(ctx, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return user.User{}, errors.Wrap(err, "locking users")
		}
		var ids []string
		if err = tx.SelectContext(ctx, &ids, `SELECT id FROM users WHERE id LIKE $1`, usr.Role.IDPrefix()+"%"); err != nil {
			return user.User{}, errors.Wrap(err, "selecting user IDs")
		}
		usr.ID = user.NextID(usr.Role, ids)
	}

	q := `INSERT INTO users (` + userColumns + `) VALUES (:id, :role, :name, :username, :email, :class_id, :dept, :club_name, :password_hash, :created_at, :last_login)`
	if _, err = tx.NamedExecContext(ctx, q, newUserRow(usr)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			switch pqErr.Constraint {
			case "users_username_key":
				return user.User{}, user.ErrUsernameExists
			case "users_email_key":
				return user.User{}, user.ErrEmailExists
			default:
				return user.User{}, user.ErrIDExists
			}
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	if err = tx.Commit(); err != nil {
		return user.User{}, errors.Wrap(err, "committing user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET role = :role, name = :name, username = :username, email = :email, class_id = :class_id,
		dept = :dept, club_name = :club_name, password_hash = :password_hash, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) get(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY id LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.get(ctx, `lower(id) = lower($1)`, id)
}

func (repo *userRepository) GetUserByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	return repo.get(ctx, `lower(username) = lower($1) OR lower(email) = lower($1) OR lower(id) = lower($1)`, identifier)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	conds := []string{"TRUE"}
	args := map[string]interface{}{}
	if filter.Role != "" {
		conds = append(conds, "role = :role")
		args["role"] = string(filter.Role)
	}
	if filter.Dept != "" {
		conds = append(conds, "lower(dept) = lower(:dept)")
		args["dept"] = filter.Dept
	}
	if len(filter.IDs) > 0 {
		conds = append(conds, "id = ANY(:ids)")
		args["ids"] = pq.Array(filter.IDs)
	}

	q, params, err := sqlx.Named(`SELECT `+userColumns+` FROM users WHERE `+strings.Join(conds, " AND ")+` ORDER BY id`, args)
	if err != nil {
		return nil, errors.Wrap(err, "binding user query")
	}
	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), params...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}
