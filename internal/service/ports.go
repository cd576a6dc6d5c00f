package service

import (
	"context"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/domain/project"
	"github.com/geocoder89/workerhub/internal/domain/session"
	"github.com/geocoder89/workerhub/internal/notifications"
)

type UserStore interface {
	Create(ctx context.Context, a account.Account) (account.Account, error)
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	GetByEmailAndRole(ctx context.Context, email string, role account.Role) (account.Account, error)
	ListByRole(ctx context.Context, role account.Role) ([]account.Account, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type ProjectStore interface {
	Create(ctx context.Context, p project.Project) (project.Project, error)
	GetByID(ctx context.Context, id string) (project.Project, error)
	ListAll(ctx context.Context) ([]project.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]project.Project, error)
	FindByOwnerAndName(ctx context.Context, ownerID, name string) ([]project.Project, error)
	Update(ctx context.Context, p project.Project) (project.Project, error)
	Delete(ctx context.Context, id string) error
}

type RefreshStore interface {
	Create(ctx context.Context, row session.RefreshToken) error
	// Rotate atomically checks the presented row, revokes it and stores next.
	Rotate(ctx context.Context, presentedID, presentedHash string, next session.RefreshToken) (session.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type Sender interface {
	Send(ctx context.Context, msg notifications.Message) error
}
