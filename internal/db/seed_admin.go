package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/security"
)

type AdminSeedStore interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Create(ctx context.Context, a account.Account) (account.Account, error)
}

type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// EnsureAdminUser creates the bootstrap admin once. It is a no-op when the seed is
// incomplete or the username already exists.
func EnsureAdminUser(ctx context.Context, users AdminSeedStore, seed AdminSeed, log *slog.Logger) error {
	if seed.Username == "" || seed.Password == "" {
		return nil
	}

	_, err := users.GetByUsername(ctx, seed.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	hash, err := security.HashPassword(seed.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	created, err := users.Create(ctx, account.New(seed.Username, seed.Email, hash, account.RoleAdmin))
	if err != nil {
		// another replica seeded it first
		if errors.Is(err, account.ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	if log != nil {
		log.InfoContext(ctx, "bootstrap admin created", "user_id", created.ID, "username", created.Username)
	}

	return nil
}
