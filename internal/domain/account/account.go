package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleWorker Role = "WORKER"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleWorker:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound      = errors.New("account not found")
	ErrUsernameTaken = errors.New("username already exists")
)

type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Role         Role       `json:"role"`
	IsStaff      bool       `json:"-"`
	IsSuperuser  bool       `json:"-"`
	LastLogin    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Profile is the public view of an account returned after login and in reports.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (a Account) Profile() Profile {
	return Profile{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}

// New builds an account for the given role. Staff and superuser flags follow the role
// and cannot be chosen by the caller.
func New(username, email, passwordHash string, role Role) Account {
	now := time.Now().UTC()
	admin := role == RoleAdmin

	return Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsStaff:      admin,
		IsSuperuser:  admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
