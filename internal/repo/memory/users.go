package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]account.Account
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]account.Account),
	}
}

func (r *UsersRepo) Create(_ context.Context, a account.Account) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Username == a.Username {
			return account.Account{}, account.ErrUsernameTaken
		}
	}

	r.items[a.ID] = a
	return a, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.items {
		if a.Username == username {
			return a, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

// GetByEmailAndRole returns the oldest match when several accounts share an email.
func (r *UsersRepo) GetByEmailAndRole(_ context.Context, email string, role account.Role) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found account.Account
		ok    bool
	)
	for _, a := range r.items {
		if a.Role != role || !strings.EqualFold(a.Email, email) {
			continue
		}
		if !ok || a.CreatedAt.Before(found.CreatedAt) {
			found, ok = a, true
		}
	}

	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return found, nil
}

func (r *UsersRepo) ListByRole(_ context.Context, role account.Role) ([]account.Account, error) {
	r.mu.RLock()
	out := make([]account.Account, 0, len(r.items))
	for _, a := range r.items {
		if a.Role == role {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *UsersRepo) SetPassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return account.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = time.Now().UTC()
	r.items[id] = a
	return nil
}

func (r *UsersRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return account.ErrNotFound
	}
	// keep the same precision Postgres stores
	t := at.UTC().Truncate(time.Microsecond)
	a.LastLogin = &t
	r.items[id] = a
	return nil
}
