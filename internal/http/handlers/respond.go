package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/workerhub/internal/service"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// requestTimeout bounds store work while keeping the request's values (ids, span) on the context.
func requestTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

func RespondError(ctx *gin.Context, status int, code, detail string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Detail:    detail,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, detail string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", detail, details)
}

func RespondUnauthorized(ctx *gin.Context, detail string) {
	RespondError(ctx, http.StatusUnauthorized, "unauthorized", detail, nil)
}

func RespondNotFound(ctx *gin.Context, detail string) {
	RespondError(ctx, http.StatusNotFound, "not_found", detail, nil)
}

func RespondInternal(ctx *gin.Context, detail string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", detail, nil)
}

func RespondConflict(ctx *gin.Context, code, detail string) {
	RespondError(ctx, http.StatusConflict, code, detail, nil)
}

// RespondServiceError maps the service error taxonomy onto HTTP. Anything outside the
// taxonomy is logged and reported as a 500 without internals.
func RespondServiceError(ctx *gin.Context, log *slog.Logger, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.KindValidation:
			var details interface{}
			if len(se.Fields) > 0 {
				details = gin.H{"fields": se.Fields}
			}
			RespondError(ctx, http.StatusBadRequest, string(se.Kind), se.Detail, details)
		case service.KindPermission:
			RespondError(ctx, http.StatusForbidden, string(se.Kind), se.Detail, nil)
		case service.KindNotFound:
			RespondError(ctx, http.StatusNotFound, string(se.Kind), se.Detail, nil)
		case service.KindAuthentication:
			ctx.Header("WWW-Authenticate", `Bearer realm="api"`)
			RespondError(ctx, http.StatusUnauthorized, string(se.Kind), se.Detail, nil)
		default:
			RespondInternal(ctx, "internal server error")
		}
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		RespondError(ctx, http.StatusGatewayTimeout, "timeout", "request timed out", nil)
		return
	}

	if log != nil {
		log.ErrorContext(ctx.Request.Context(), "request failed", "err", err, "route", ctx.FullPath())
	}
	RespondInternal(ctx, "internal server error")
}
