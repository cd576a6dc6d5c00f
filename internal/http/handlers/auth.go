package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/http/middlewares"
	"github.com/geocoder89/workerhub/internal/service"
	"github.com/gin-gonic/gin"
)

// AccountsService is the slice of service.AccountService the auth endpoints need.
type AccountsService interface {
	RegisterWorker(ctx context.Context, in service.RegisterInput) (account.Profile, error)
	RegisterAdmin(ctx context.Context, caller account.Principal, inviteToken string, in service.RegisterInput) (account.Profile, error)
	Login(ctx context.Context, in service.LoginInput) (service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, in service.ResetConfirmInput) (string, error)
}

const adminInviteHeader = "X-Admin-Invite"

type AuthHandler struct {
	accounts AccountsService
	log      *slog.Logger
}

func NewAuthHandler(accounts AccountsService, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{accounts: accounts, log: log}
}

// registration bodies are validated by the service; a role field is simply not read
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r registerRequest) input() service.RegisterInput {
	return service.RegisterInput{Username: r.Username, Email: r.Email, Password: r.Password}
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// POST /api/register/worker
func (h *AuthHandler) RegisterWorker(ctx *gin.Context) {
	var req registerRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	profile, err := h.accounts.RegisterWorker(cctx, req.input())
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, profile)
}

// POST /api/register/admin
func (h *AuthHandler) RegisterAdmin(ctx *gin.Context) {
	var req registerRequest
	if !BindJSON(ctx, &req) {
		return
	}

	// nil for anonymous callers
	caller, _ := middlewares.PrincipalFromContext(ctx)

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	profile, err := h.accounts.RegisterAdmin(cctx, caller, ctx.GetHeader(adminInviteHeader), req.input())
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, profile)
}

// POST /api/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req service.LoginInput
	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := h.accounts.Login(cctx, req)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

// POST /api/token/refresh
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req refreshRequest
	if !BindJSON(ctx, &req) {
		return
	}

	// rotation runs in a tx with a row lock
	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	pair, err := h.accounts.Refresh(cctx, req.Refresh)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, pair)
}

// POST /api/logout
func (h *AuthHandler) Logout(ctx *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	// logout is best effort, a bad body still ends with 204
	_ = ctx.ShouldBindJSON(&req)

	if req.Refresh != "" {
		cctx, cancel := requestTimeout(ctx, 3*time.Second)
		defer cancel()

		h.accounts.Logout(cctx, req.Refresh)
	}

	ctx.Status(http.StatusNoContent)
}

// POST /api/password-reset
func (h *AuthHandler) RequestPasswordReset(ctx *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, 5*time.Second)
	defer cancel()

	detail, err := h.accounts.RequestPasswordReset(cctx, req.Email)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"detail": detail})
}

// POST /api/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(ctx *gin.Context) {
	var req service.ResetConfirmInput
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	detail, err := h.accounts.ConfirmPasswordReset(cctx, req)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"detail": detail})
}
