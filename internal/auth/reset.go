package auth

import (
	"crypto/hmac"
	"errors"
	"strconv"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrResetTokenStale = errors.New("reset token no longer matches account state")

// IssueResetToken returns a signed, time-limited token bound to the account's current
// password hash and last login. Changing either invalidates every token issued before.
func (m *Manager) IssueResetToken(acc account.Account) (string, error) {
	now := m.now()

	claims := Claims{
		UserID:      acc.ID,
		TokenType:   TokenTypeReset,
		JTI:         uuid.NewString(),
		Fingerprint: m.resetFingerprint(acc),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.resetTTL)),
			Subject:   acc.ID,
		},
	}

	return m.sign(claims)
}

func (m *Manager) VerifyResetToken(acc account.Account, token string) error {
	claims, err := m.ParseAndValidate(token)
	if err != nil {
		return err
	}

	if claims.TokenType != TokenTypeReset {
		return ErrInvalidTokenType
	}

	if claims.UserID != acc.ID {
		return ErrInvalidToken
	}

	if !hmac.Equal([]byte(claims.Fingerprint), []byte(m.resetFingerprint(acc))) {
		return ErrResetTokenStale
	}

	return nil
}

func (m *Manager) resetFingerprint(acc account.Account) string {
	lastLogin := ""
	if acc.LastLogin != nil {
		lastLogin = strconv.FormatInt(acc.LastLogin.UTC().UnixMicro(), 10)
	}

	return m.mac("reset", acc.ID, acc.PasswordHash, lastLogin, acc.Email)
}
