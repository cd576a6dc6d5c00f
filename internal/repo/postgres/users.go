package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	observed
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{observed: observed{prom: prom}, pool: pool}
}

const userColumns = `id, username, email, password_hash, role, is_staff, is_superuser, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (account.Account, error) {
	var a account.Account
	var role string

	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&role,
		&a.IsStaff,
		&a.IsSuperuser,
		&a.LastLogin,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return account.Account{}, err
	}

	a.Role = account.Role(role)
	return a, nil
}

func (r *UsersRepo) Create(ctx context.Context, a account.Account) (account.Account, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			a.ID, a.Username, a.Email, a.PasswordHash, string(a.Role),
			a.IsStaff, a.IsSuperuser, a.LastLogin, a.CreatedAt, a.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return account.Account{}, account.ErrUsernameTaken
		}
		return account.Account{}, err
	}

	return a, nil
}

func (r *UsersRepo) getOne(ctx context.Context, op, where string, args ...any) (account.Account, error) {
	var a account.Account

	err := r.observe(op, func() error {
		var err error
		a, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}

	return a, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (account.Account, error) {
	return r.getOne(ctx, "users.get_by_id", `id = $1`, id)
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (account.Account, error) {
	return r.getOne(ctx, "users.get_by_username", `username = $1`, username)
}

// GetByEmailAndRole returns the oldest account when several share the email.
func (r *UsersRepo) GetByEmailAndRole(ctx context.Context, email string, role account.Role) (account.Account, error) {
	return r.getOne(ctx, "users.get_by_email_and_role",
		`lower(email) = lower($1) AND role = $2 ORDER BY created_at ASC LIMIT 1`, email, string(role))
}

func (r *UsersRepo) ListByRole(ctx context.Context, role account.Role) ([]account.Account, error) {
	var rows pgx.Rows

	err := r.observe("users.list_by_role", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY username ASC`, string(role))
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]account.Account, 0)
	for rows.Next() {
		a, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *UsersRepo) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, "users.set_password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

func (r *UsersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, "users.touch_last_login",
		`UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
}

func (r *UsersRepo) updateOne(ctx context.Context, op, sql string, args ...any) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}
