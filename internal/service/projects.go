package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/domain/project"
	"github.com/geocoder89/workerhub/internal/validation"
	"github.com/go-playground/validator/v10"
)

const (
	detailStatusForbidden = "You do not have permission to update this project"
	detailAdminReadOnly   = "Admins have read-only access to projects"
	detailAdminNoCreate   = "Only workers can create projects"
	detailAdminOnly       = "Only admins can view projects grouped by worker"
)

// WorkerProjects is one row of the admin report.
type WorkerProjects struct {
	Worker   account.Profile   `json:"worker"`
	Projects []project.Project `json:"projects"`
}

// ProjectService enforces who may see and change which project.
type ProjectService struct {
	projects ProjectStore
	users    UserStore
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

func NewProjectService(projects ProjectStore, users UserStore, log *slog.Logger) *ProjectService {
	if log == nil {
		log = slog.Default()
	}

	return &ProjectService{
		projects: projects,
		users:    users,
		validate: validation.New(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// visible: admins see everything, workers see what they own.
func visible(p account.Principal, proj project.Project) bool {
	switch p := p.(type) {
	case account.Admin:
		return true
	case account.Worker:
		return proj.OwnerID == p.ID
	default:
		return false
	}
}

func (s *ProjectService) List(ctx context.Context, p account.Principal) ([]project.Project, error) {
	var (
		items []project.Project
		err   error
	)

	switch p := p.(type) {
	case account.Admin:
		items, err = s.projects.ListAll(ctx)
	case account.Worker:
		items, err = s.projects.ListByOwner(ctx, p.ID)
	default:
		return nil, permissionError(detailStatusForbidden)
	}

	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return items, nil
}

func (s *ProjectService) Create(ctx context.Context, p account.Principal, req project.CreateRequest) (project.Project, error) {
	w, ok := p.(account.Worker)
	if !ok {
		return project.Project{}, permissionError(detailAdminNoCreate)
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateInput(req); err != nil {
		return project.Project{}, err
	}

	proj := project.NewFromCreateRequest(w.ID, req)
	if err := checkProject(proj); err != nil {
		return project.Project{}, err
	}

	created, err := s.projects.Create(ctx, proj)
	if err != nil {
		return project.Project{}, fmt.Errorf("create project: %w", err)
	}

	s.log.InfoContext(ctx, "project created", "project_id", created.ID, "owner_id", w.ID)

	return created, nil
}

func (s *ProjectService) Get(ctx context.Context, p account.Principal, id string) (project.Project, error) {
	return s.loadVisible(ctx, p, id)
}

// Update applies a full (PUT) or partial (PATCH) change; both arrive as an UpdateRequest.
func (s *ProjectService) Update(ctx context.Context, p account.Principal, id string, req project.UpdateRequest) (project.Project, error) {
	proj, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return project.Project{}, err
	}

	if _, ok := p.(account.Admin); ok {
		return project.Project{}, permissionError(detailAdminReadOnly)
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := s.validateInput(req); err != nil {
		return project.Project{}, err
	}

	proj.Apply(req)
	if err := checkProject(proj); err != nil {
		return project.Project{}, err
	}

	proj.UpdatedAt = s.now()

	updated, err := s.projects.Update(ctx, proj)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return project.Project{}, notFoundError(detailProjectNotFound)
		}
		return project.Project{}, fmt.Errorf("update project: %w", err)
	}

	return updated, nil
}

func (s *ProjectService) Delete(ctx context.Context, p account.Principal, id string) error {
	proj, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return err
	}

	if _, ok := p.(account.Admin); ok {
		return permissionError(detailAdminReadOnly)
	}

	if err := s.projects.Delete(ctx, proj.ID); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return notFoundError(detailProjectNotFound)
		}
		return fmt.Errorf("delete project: %w", err)
	}

	s.log.InfoContext(ctx, "project deleted", "project_id", proj.ID)

	return nil
}

// UpdateStatus checks, in order: existence, visibility, role, ownership, then the status value.
// Repeating the same status is a no-op success.
func (s *ProjectService) UpdateStatus(ctx context.Context, p account.Principal, id string, status project.Status) (project.Project, error) {
	proj, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return project.Project{}, notFoundError(detailProjectNotFound)
		}
		return project.Project{}, fmt.Errorf("load project: %w", err)
	}

	if !visible(p, proj) {
		return project.Project{}, permissionError(detailStatusForbidden)
	}

	switch p := p.(type) {
	case account.Admin:
		return project.Project{}, permissionError(detailStatusForbidden)
	case account.Worker:
		if proj.OwnerID != p.ID {
			return project.Project{}, permissionError(detailStatusForbidden)
		}
	}

	if !status.IsValid() {
		param := "PENDING IN_PROGRESS COMPLETED"
		return project.Project{}, validationError("Invalid status",
			FieldError{Field: "status", Rule: "oneof", Param: param, Message: validation.Message("oneof", param)})
	}

	proj.Status = status
	proj.UpdatedAt = s.now()

	updated, err := s.projects.Update(ctx, proj)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return project.Project{}, notFoundError(detailProjectNotFound)
		}
		return project.Project{}, fmt.Errorf("update project status: %w", err)
	}

	s.log.InfoContext(ctx, "project status updated", "project_id", proj.ID, "status", status)

	return updated, nil
}

// Grouped returns one entry per worker, including workers without projects.
func (s *ProjectService) Grouped(ctx context.Context, p account.Principal) ([]WorkerProjects, error) {
	if _, ok := p.(account.Admin); !ok {
		return nil, permissionError(detailAdminOnly)
	}

	workers, err := s.users.ListByRole(ctx, account.RoleWorker)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	all, err := s.projects.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	byOwner := make(map[string][]project.Project, len(workers))
	for _, proj := range all {
		byOwner[proj.OwnerID] = append(byOwner[proj.OwnerID], proj)
	}

	out := make([]WorkerProjects, 0, len(workers))
	for _, w := range workers {
		items := byOwner[w.ID]
		if items == nil {
			items = []project.Project{}
		}
		out = append(out, WorkerProjects{Worker: w.Profile(), Projects: items})
	}

	return out, nil
}

// Search matches name case-insensitively among the caller's own projects, for either role.
func (s *ProjectService) Search(ctx context.Context, p account.Principal, name string) ([]project.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("The 'name' query parameter is required.",
			FieldError{Field: "name", Rule: "required", Message: validation.Message("required", "")})
	}
	if p == nil {
		return nil, permissionError(detailStatusForbidden)
	}

	items, err := s.projects.FindByOwnerAndName(ctx, p.AccountID(), name)
	if err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}

	if len(items) == 0 {
		return nil, notFoundError(detailNoProjectsByName)
	}

	return items, nil
}

func (s *ProjectService) loadVisible(ctx context.Context, p account.Principal, id string) (project.Project, error) {
	proj, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return project.Project{}, notFoundError(detailProjectNotFound)
		}
		return project.Project{}, fmt.Errorf("load project: %w", err)
	}

	if !visible(p, proj) {
		return project.Project{}, notFoundError(detailProjectNotFound)
	}

	return proj, nil
}

func (s *ProjectService) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		fields, ok := validation.FieldErrors(err)
		if !ok {
			return fmt.Errorf("validate project: %w", err)
		}
		return validationError("Invalid project data", fields...)
	}
	return nil
}

func checkProject(proj project.Project) error {
	switch err := proj.Validate(); {
	case err == nil:
		return nil
	case errors.Is(err, project.ErrInvalidStatus):
		param := "PENDING IN_PROGRESS COMPLETED"
		return validationError("Invalid project data",
			FieldError{Field: "status", Rule: "oneof", Param: param, Message: validation.Message("oneof", param)})
	case errors.Is(err, project.ErrDateOrder):
		return validationError("Invalid project data",
			FieldError{Field: "finish_date", Rule: "gtefield", Param: "start_date", Message: err.Error()})
	default:
		return validationError(err.Error())
	}
}
