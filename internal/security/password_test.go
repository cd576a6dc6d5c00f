package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cure-Horse")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cure-Horse", hash)

	assert.NoError(t, CheckPassword(hash, "s3cure-Horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, CheckPassword("not-a-bcrypt-hash", "wrong"))
	assert.NotErrorIs(t, CheckPassword("not-a-bcrypt-hash", "wrong"), ErrPasswordMismatch)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestPasswordPolicy_Check(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name       string
		password   string
		attributes []string
		wantRules  int
	}{
		{name: "strong", password: "violet-Orbit-42", attributes: []string{"alice", "alice@example.com"}},
		{name: "too_short", password: "a1b2", wantRules: 1},
		{name: "numeric_and_short", password: "4815", wantRules: 2},
		{name: "common", password: "password123", wantRules: 1},
		{name: "too_long", password: "x9-" + strings.Repeat("Zq", 40), wantRules: 1},
		{name: "similar_to_username", password: "alice2024!", attributes: []string{"alice"}, wantRules: 1},
		{name: "similar_to_email_local_part", password: "bobbuilder99", attributes: []string{"bobbuilder@example.com"}, wantRules: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.password, tt.attributes...)

			if tt.wantRules == 0 {
				assert.NoError(t, err)
				return
			}

			var perr *PolicyError
			require.True(t, errors.As(err, &perr), "expected PolicyError, got %v", err)
			assert.Len(t, perr.Violations, tt.wantRules)
		})
	}
}

func TestPasswordPolicy_MinLengthConfigurable(t *testing.T) {
	policy := PasswordPolicy{MinLength: 6}

	assert.NoError(t, policy.Check("123456"))
	assert.Error(t, policy.Check("12345"))
}
