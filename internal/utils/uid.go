package utils

import (
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidUID = errors.New("invalid uid")

// EncodeUID renders an account id for use in a reset link path segment.
func EncodeUID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeUID reverses EncodeUID. Padded input is accepted too.
func DecodeUID(s string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return "", ErrInvalidUID
		}
	}

	id := string(raw)
	if !IsUUID(id) {
		return "", ErrInvalidUID
	}

	return id, nil
}

func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
