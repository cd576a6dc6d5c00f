package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CtxRequestID = "request_id"
	CtxPrincipal = "auth.principal"
	CtxJobID     = "job_id"
)

func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(CtxRequestID)
}

// abort writes the API error envelope and stops the chain.
func abort(c *gin.Context, status int, code, detail string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"detail":    detail,
			"requestId": RequestIDFromContext(c),
		},
	})
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	abort(c, http.StatusUnauthorized, "unauthorized", detail)
}
