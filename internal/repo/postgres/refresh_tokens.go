package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/session"
	"github.com/geocoder89/workerhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	observed
	pool *pgxpool.Pool
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{observed: observed{prom: prom}, pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(ctx context.Context, db execer, row session.RefreshToken) error {
	_, err := db.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row session.RefreshToken) error {
	return r.observe("refresh_tokens.create", func() error {
		return insertRefreshToken(ctx, r.pool, row)
	})
}

// Rotate locks the presented row, validates it, revokes it pointing at next and inserts
// next, all in one transaction. Concurrent refreshes of one token serialize on the lock
// and only the first wins.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, presentedID, presentedHash string, next session.RefreshToken) (session.RefreshToken, error) {
	var (
		out      session.RefreshToken
		rejected error
	)

	err := r.observe("refresh_tokens.rotate", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		row, err := getForUpdate(ctx, tx, presentedID)
		if errors.Is(err, session.ErrRefreshTokenNotFound) {
			rejected = err
			return nil
		}
		if err != nil {
			return err
		}

		if err := row.CheckUsable(presentedHash, time.Now().UTC()); err != nil {
			rejected = err
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW(), replaced_by = $2
			WHERE id = $1
		`, row.ID, next.ID); err != nil {
			return fmt.Errorf("revoke presented token: %w", err)
		}

		if err := insertRefreshToken(ctx, tx, next); err != nil {
			return fmt.Errorf("insert rotated token: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		out = row
		return nil
	})

	if err != nil {
		return session.RefreshToken{}, err
	}
	if rejected != nil {
		return session.RefreshToken{}, rejected
	}
	return out, nil
}

func getForUpdate(ctx context.Context, tx pgx.Tx, id string) (session.RefreshToken, error) {
	var row session.RefreshToken

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.RefreshToken{}, session.ErrRefreshTokenNotFound
		}
		return session.RefreshToken{}, err
	}

	return row, nil
}

func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("refresh_tokens.revoke", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = COALESCE(revoked_at, NOW())
			WHERE id = $1
		`, id)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return session.ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.observe("refresh_tokens.revoke_all_for_user", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE user_id = $1 AND revoked_at IS NULL
		`, userID)
		return err
	})
}

// DeleteExpired purges rows that can no longer be presented.
func (r *RefreshTokensRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var tag pgconn.CommandTag

	err := r.observe("refresh_tokens.delete_expired", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
		return err
	})
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
