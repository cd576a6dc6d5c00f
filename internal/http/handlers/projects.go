package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/domain/project"
	"github.com/geocoder89/workerhub/internal/http/middlewares"
	"github.com/geocoder89/workerhub/internal/service"
	"github.com/geocoder89/workerhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ProjectsService interface {
	List(ctx context.Context, p account.Principal) ([]project.Project, error)
	Create(ctx context.Context, p account.Principal, req project.CreateRequest) (project.Project, error)
	Get(ctx context.Context, p account.Principal, id string) (project.Project, error)
	Update(ctx context.Context, p account.Principal, id string, req project.UpdateRequest) (project.Project, error)
	Delete(ctx context.Context, p account.Principal, id string) error
	UpdateStatus(ctx context.Context, p account.Principal, id string, status project.Status) (project.Project, error)
	Grouped(ctx context.Context, p account.Principal) ([]service.WorkerProjects, error)
	Search(ctx context.Context, p account.Principal, name string) ([]project.Project, error)
}

type ProjectsHandler struct {
	projects ProjectsService
	log      *slog.Logger
}

func NewProjectsHandler(projects ProjectsService, log *slog.Logger) *ProjectsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &ProjectsHandler{projects: projects, log: log}
}

// principal is always set behind RequireAuth; the check guards against a miswired route.
func (h *ProjectsHandler) principal(ctx *gin.Context) (account.Principal, bool) {
	p, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication credentials were not provided.")
		return nil, false
	}
	return p, true
}

// ids that are not UUIDs can never match a stored project
func projectID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Project not found")
		return "", false
	}
	return id, true
}

// GET /api/projects
func (h *ProjectsHandler) List(ctx *gin.Context) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	items, err := h.projects.List(cctx, p)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

// POST /api/projects
func (h *ProjectsHandler) Create(ctx *gin.Context) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}

	var req project.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := h.projects.Create(cctx, p, req)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.Header("Location", "/api/projects/"+created.ID)
	ctx.JSON(http.StatusCreated, created)
}

// GET /api/projects/:id
func (h *ProjectsHandler) Get(ctx *gin.Context) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	proj, err := h.projects.Get(cctx, p, id)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, proj)
}

// PUT /api/projects/:id
// Name is required; optional fields left out keep their stored value.
func (h *ProjectsHandler) Replace(ctx *gin.Context) {
	var req project.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	upd := project.UpdateRequest{
		Name:        &req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		FinishDate:  req.FinishDate,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if req.Status != "" {
		upd.Status = &req.Status
	}

	h.update(ctx, upd)
}

// PATCH /api/projects/:id
func (h *ProjectsHandler) Patch(ctx *gin.Context) {
	var req project.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.update(ctx, req)
}

func (h *ProjectsHandler) update(ctx *gin.Context, req project.UpdateRequest) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := h.projects.Update(cctx, p, id, req)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// DELETE /api/projects/:id
func (h *ProjectsHandler) Delete(ctx *gin.Context) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := h.projects.Delete(cctx, p, id); err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// PATCH /api/projects/:id/status
func (h *ProjectsHandler) UpdateStatus(ctx *gin.Context) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	var req project.UpdateStatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := h.projects.UpdateStatus(cctx, p, id, req.Status)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// GET /api/projects/grouped
func (h *ProjectsHandler) Grouped(ctx *gin.Context) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	groups, err := h.projects.Grouped(cctx, p)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, groups)
}

// GET /api/projects/search?name=
func (h *ProjectsHandler) Search(ctx *gin.Context) {
	p, ok := h.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	items, err := h.projects.Search(cctx, p, ctx.Query("name"))
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, items)
}
