package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/project"
	"github.com/geocoder89/workerhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProjectsRepo struct {
	observed
	pool *pgxpool.Pool
}

func NewProjectsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProjectsRepo {
	return &ProjectsRepo{observed: observed{prom: prom}, pool: pool}
}

const projectColumns = `id, worker_id, name, description, start_date, finish_date, latitude, longitude, status, created_at, updated_at`

func scanProject(row pgx.Row) (project.Project, error) {
	var (
		p             project.Project
		start, finish *time.Time
		status        string
	)

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Description,
		&start,
		&finish,
		&p.Latitude,
		&p.Longitude,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return project.Project{}, err
	}

	p.StartDate = project.DateFromTimePtr(start)
	p.FinishDate = project.DateFromTimePtr(finish)
	p.Status = project.Status(status)
	return p, nil
}

func (r *ProjectsRepo) Create(ctx context.Context, p project.Project) (project.Project, error) {
	err := r.observe("projects.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO projects (`+projectColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			p.ID, p.OwnerID, p.Name, p.Description,
			p.StartDate.TimePtr(), p.FinishDate.TimePtr(),
			p.Latitude, p.Longitude, string(p.Status), p.CreatedAt, p.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return project.Project{}, err
	}

	return p, nil
}

func (r *ProjectsRepo) GetByID(ctx context.Context, id string) (project.Project, error) {
	var p project.Project

	err := r.observe("projects.get_by_id", func() error {
		var err error
		p, err = scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, err
	}

	return p, nil
}

func (r *ProjectsRepo) ListAll(ctx context.Context) ([]project.Project, error) {
	return r.list(ctx, "projects.list_all", `ORDER BY created_at ASC, id ASC`)
}

func (r *ProjectsRepo) ListByOwner(ctx context.Context, ownerID string) ([]project.Project, error) {
	return r.list(ctx, "projects.list_by_owner", `WHERE worker_id = $1 ORDER BY created_at ASC, id ASC`, ownerID)
}

func (r *ProjectsRepo) FindByOwnerAndName(ctx context.Context, ownerID, name string) ([]project.Project, error) {
	return r.list(ctx, "projects.find_by_owner_and_name",
		`WHERE worker_id = $1 AND lower(name) = lower($2) ORDER BY created_at ASC, id ASC`, ownerID, name)
}

func (r *ProjectsRepo) list(ctx context.Context, op, tail string, args ...any) ([]project.Project, error) {
	var rows pgx.Rows

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects `+tail, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]project.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// Update writes every mutable column. worker_id and created_at are never touched.
func (r *ProjectsRepo) Update(ctx context.Context, p project.Project) (project.Project, error) {
	var out project.Project

	err := r.observe("projects.update", func() error {
		var err error
		out, err = scanProject(r.pool.QueryRow(ctx, `
			UPDATE projects
			SET name = $2,
			    description = $3,
			    start_date = $4,
			    finish_date = $5,
			    latitude = $6,
			    longitude = $7,
			    status = $8,
			    updated_at = $9
			WHERE id = $1
			RETURNING `+projectColumns,
			p.ID, p.Name, p.Description,
			p.StartDate.TimePtr(), p.FinishDate.TimePtr(),
			p.Latitude, p.Longitude, string(p.Status), p.UpdatedAt,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, err
	}

	return out, nil
}

func (r *ProjectsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("projects.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return project.ErrNotFound
	}
	return nil
}
