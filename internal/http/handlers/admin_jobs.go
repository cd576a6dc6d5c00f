package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/job"
	"github.com/geocoder89/workerhub/internal/http/middlewares"
	"github.com/geocoder89/workerhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type AdminJobsRepo interface {
	ListCursor(
		ctx context.Context,
		status *string,
		limit int,
		afterUpdatedAt time.Time,
		afterID string,
	) (items []job.Job, nextCursor *string, hasMore bool, err error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	Retry(ctx context.Context, id string) error
	RetryManyFailed(ctx context.Context, limit int) (int64, error)
}

// AdminJobsHandler is the admin console over the email delivery queue.
type AdminJobsHandler struct {
	repo AdminJobsRepo
	log  *slog.Logger
}

func NewAdminJobsHandler(repo AdminJobsRepo, log *slog.Logger) *AdminJobsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AdminJobsHandler{
		repo: repo,
		log:  log,
	}
}

func parseIntDefault(s string, fallback int) (int, bool) {
	if s == "" {
		return fallback, true
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}

	return n, true
}

// GET /api/admin/jobs?status=failed&limit=50&cursor=
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	limit, ok := parseIntDefault(ctx.Query("limit"), 20)
	if !ok || limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	var statusPtr *string
	if s := ctx.Query("status"); s != "" {
		if !job.Status(s).IsValid() {
			RespondBadRequest(ctx, "status must be one of pending, processing, done, failed", nil)
			return
		}
		statusPtr = &s
	}

	after := utils.FirstPage()
	if token := ctx.Query("cursor"); token != "" {
		cur, err := utils.ParseCursor(token)
		if err != nil {
			RespondBadRequest(ctx, "cursor is invalid", nil)
			return
		}
		after = cur
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	items, next, hasMore, err := h.repo.ListCursor(cctx, statusPtr, limit, after.UpdatedAt, after.ID)
	if err != nil {
		h.log.ErrorContext(cctx, "list jobs failed", "err", err)
		RespondInternal(ctx, "Could not list jobs")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"limit":      limit,
		"count":      len(items),
		"items":      items,
		"hasMore":    hasMore,
		"nextCursor": next,
	})
}

// GET /api/admin/jobs/:id
func (h *AdminJobsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxJobID, id)

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	j, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}

		h.log.ErrorContext(cctx, "get job failed", "job_id", id, "err", err)
		RespondInternal(ctx, "Could not fetch job")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, j)
}

// POST /api/admin/jobs/:id/retry
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxJobID, id)

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.repo.Retry(cctx, id); err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			RespondNotFound(ctx, "Job not found")
		case errors.Is(err, job.ErrJobNotFailed):
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
		default:
			h.log.ErrorContext(cctx, "retry job failed", "job_id", id, "err", err)
			RespondInternal(ctx, "Could not retry job")
		}
		return
	}

	h.log.InfoContext(cctx, "job requeued by admin", "job_id", id)

	ctx.JSON(http.StatusOK, gin.H{
		"jobId":  id,
		"status": job.StatusPending,
	})
}

// POST /api/admin/jobs/retry-failed?limit=50
func (h *AdminJobsHandler) RetryFailed(ctx *gin.Context) {
	limit, ok := parseIntDefault(ctx.Query("limit"), 50)
	if !ok {
		RespondBadRequest(ctx, "limit must be a number", nil)
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	n, err := h.repo.RetryManyFailed(cctx, limit)
	if err != nil {
		h.log.ErrorContext(cctx, "retry failed jobs failed", "err", err)
		RespondInternal(ctx, "Could not requeue failed jobs")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"requeued": n,
	})
}
