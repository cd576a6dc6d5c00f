package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/geocoder89/workerhub/internal/domain/project"
)

type ProjectsRepo struct {
	mu    sync.RWMutex
	items map[string]project.Project
}

func NewProjectsRepo() *ProjectsRepo {
	return &ProjectsRepo{
		items: make(map[string]project.Project),
	}
}

func (r *ProjectsRepo) Create(_ context.Context, p project.Project) (project.Project, error) {
	r.mu.Lock()
	r.items[p.ID] = p
	r.mu.Unlock()

	return p, nil
}

func (r *ProjectsRepo) GetByID(_ context.Context, id string) (project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

func (r *ProjectsRepo) ListAll(_ context.Context) ([]project.Project, error) {
	return r.filter(func(project.Project) bool { return true }), nil
}

func (r *ProjectsRepo) ListByOwner(_ context.Context, ownerID string) ([]project.Project, error) {
	return r.filter(func(p project.Project) bool { return p.OwnerID == ownerID }), nil
}

func (r *ProjectsRepo) FindByOwnerAndName(_ context.Context, ownerID, name string) ([]project.Project, error) {
	return r.filter(func(p project.Project) bool {
		return p.OwnerID == ownerID && strings.EqualFold(p.Name, name)
	}), nil
}

// Update is last-write-wins.
func (r *ProjectsRepo) Update(_ context.Context, p project.Project) (project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[p.ID]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}

	p.OwnerID = existing.OwnerID
	p.CreatedAt = existing.CreatedAt
	r.items[p.ID] = p
	return p, nil
}

func (r *ProjectsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return project.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// filter returns matches ordered by creation time, then id.
func (r *ProjectsRepo) filter(keep func(project.Project) bool) []project.Project {
	r.mu.RLock()
	out := make([]project.Project, 0, len(r.items))
	for _, p := range r.items {
		if keep(p) {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
