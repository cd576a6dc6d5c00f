package session

import (
	"errors"
	"time"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenMismatch = errors.New("refresh token hash mismatch")
)

// RefreshToken is the stored side of a refresh JWT. Only the HMAC of the raw token is kept.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

// CheckUsable validates a stored row against the hash of the presented token.
func (t RefreshToken) CheckUsable(presentedHash string, now time.Time) error {
	if t.RevokedAt != nil {
		return ErrRefreshTokenRevoked
	}
	if now.After(t.ExpiresAt) {
		return ErrRefreshTokenExpired
	}
	if t.TokenHash != presentedHash {
		return ErrRefreshTokenMismatch
	}
	return nil
}
