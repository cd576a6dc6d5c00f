package utils

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a keyset position for listings ordered by (updated_at DESC, id DESC).
type Cursor struct {
	UpdatedAt time.Time
	ID        string
}

// FirstPage sorts after every real row, so the first page needs no special query.
func FirstPage() Cursor {
	return Cursor{
		UpdatedAt: time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
		ID:        "ffffffff-ffff-ffff-ffff-ffffffffffff",
	}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.UpdatedAt.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func ParseCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, ErrInvalidCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}

	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil || n <= 0 {
		return Cursor{}, ErrInvalidCursor
	}
	if _, err := uuid.Parse(id); err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	return Cursor{UpdatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
