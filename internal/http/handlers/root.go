package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/
func APIRoot(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"register_worker":        "/api/register/worker",
		"register_admin":         "/api/register/admin",
		"login":                  "/api/login",
		"refresh_token":          "/api/token/refresh",
		"logout":                 "/api/logout",
		"projects":               "/api/projects",
		"projects_grouped":       "/api/projects/grouped",
		"projects_search":        "/api/projects/search?name=",
		"password_reset":         "/api/password-reset",
		"password_reset_confirm": "/api/password-reset/confirm",
	})
}
