package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/session"
)

type RefreshTokensRepo struct {
	mu    sync.Mutex
	items map[string]session.RefreshToken
	now   func() time.Time
}

func NewRefreshTokensRepo() *RefreshTokensRepo {
	return &RefreshTokensRepo{
		items: make(map[string]session.RefreshToken),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *RefreshTokensRepo) Create(_ context.Context, row session.RefreshToken) error {
	r.mu.Lock()
	r.items[row.ID] = row
	r.mu.Unlock()
	return nil
}

// Rotate holds the lock across check, revoke and insert so two refreshes of the same token
// cannot both succeed.
func (r *RefreshTokensRepo) Rotate(_ context.Context, presentedID, presentedHash string, next session.RefreshToken) (session.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.items[presentedID]
	if !ok {
		return session.RefreshToken{}, session.ErrRefreshTokenNotFound
	}

	now := r.now()
	if err := row.CheckUsable(presentedHash, now); err != nil {
		return session.RefreshToken{}, err
	}

	row.RevokedAt = &now
	row.ReplacedBy = &next.ID
	r.items[row.ID] = row
	r.items[next.ID] = next

	return row, nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.items[id]
	if !ok {
		return session.ErrRefreshTokenNotFound
	}
	if row.RevokedAt == nil {
		now := r.now()
		row.RevokedAt = &now
		r.items[id] = row
	}
	return nil
}

func (r *RefreshTokensRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, row := range r.items {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &now
			r.items[id] = row
		}
	}
	return nil
}
