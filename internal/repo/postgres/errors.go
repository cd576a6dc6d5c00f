package postgres

import (
	"errors"

	"github.com/geocoder89/workerhub/internal/observability"
	"github.com/jackc/pgx/v5/pgconn"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// observed is embedded by every repo so each logical op is timed and error-classified.
type observed struct {
	prom *observability.Prom
}

func (o observed) observe(op string, fn func() error) error {
	if o.prom != nil {
		return o.prom.ObserveDB(op, fn)
	}
	return fn()
}
