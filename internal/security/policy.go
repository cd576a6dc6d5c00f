package security

import (
	"regexp"
	"strconv"
	"strings"
)

// PasswordPolicy describes the strength rules applied at registration.
type PasswordPolicy struct {
	MinLength       int
	RejectNumeric   bool
	RejectCommon    bool
	RejectSimilarTo bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:       8,
		RejectNumeric:   true,
		RejectCommon:    true,
		RejectSimilarTo: true,
	}
}

// PolicyError lists every rule the password broke.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password rejected: " + strings.Join(e.Violations, "; ")
}

var attributeSplit = regexp.MustCompile(`\W+`)

// Check validates plain against the policy. attributes are user fields (username, email)
// the password must not resemble.
func (p PasswordPolicy) Check(plain string, attributes ...string) error {
	var violations []string

	if p.MinLength > 0 && len([]rune(plain)) < p.MinLength {
		violations = append(violations, "This password is too short. It must contain at least "+strconv.Itoa(p.MinLength)+" characters.")
	}

	if len(plain) > MaxPasswordBytes {
		violations = append(violations, "This password is too long. It must contain at most "+strconv.Itoa(MaxPasswordBytes)+" bytes.")
	}

	if p.RejectNumeric && plain != "" && isNumeric(plain) {
		violations = append(violations, "This password is entirely numeric.")
	}

	if p.RejectCommon {
		if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(plain))]; ok {
			violations = append(violations, "This password is too common.")
		}
	}

	if p.RejectSimilarTo && similarToAny(plain, attributes) {
		violations = append(violations, "The password is too similar to the username or email.")
	}

	if len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}

	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func similarToAny(plain string, attributes []string) bool {
	pw := strings.ToLower(plain)
	if len(pw) < 3 {
		return false
	}

	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}

		parts := append([]string{attr}, attributeSplit.Split(attr, -1)...)
		for _, part := range parts {
			if len(part) < 4 {
				continue
			}
			if strings.Contains(pw, part) || strings.Contains(part, pw) {
				return true
			}
		}
	}

	return false
}

var commonPasswords = map[string]struct{}{
	"123456": {}, "123456789": {}, "12345678": {}, "password": {}, "qwerty": {},
	"123123": {}, "111111": {}, "abc123": {}, "password1": {}, "1234567": {},
	"qwerty123": {}, "iloveyou": {}, "1q2w3e4r": {}, "000000": {}, "admin": {},
	"letmein": {}, "welcome": {}, "monkey": {}, "dragon": {}, "football": {},
	"baseball": {}, "sunshine": {}, "princess": {}, "passw0rd": {}, "master": {},
	"superman": {}, "trustno1": {}, "shadow": {}, "michael": {}, "qwertyuiop": {},
	"password123": {}, "admin123": {}, "welcome1": {}, "changeme": {}, "secret": {},
}
