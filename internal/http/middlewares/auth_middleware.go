package middlewares

import (
	"strings"

	"github.com/geocoder89/workerhub/internal/actorctx"
	"github.com/geocoder89/workerhub/internal/auth"
	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth rejects the request unless it carries a valid access token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Authentication credentials were not provided.")
			return
		}

		if !m.authenticate(c, header) {
			return
		}

		c.Next()
	}
}

// OptionalAuth attaches the principal when a token is sent but lets anonymous requests through.
// A token that is present but invalid is still rejected.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "" && !m.authenticate(c, header) {
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context, header string) bool {
	if !strings.HasPrefix(header, "Bearer ") {
		abortUnauthorized(c, "Missing or invalid Authorization header")
		return false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		abortUnauthorized(c, "Missing or invalid access token")
		return false
	}

	claims, err := m.jwt.VerifyAccessToken(raw)
	if err != nil {
		abortUnauthorized(c, "Given token not valid for any token type")
		return false
	}

	p, err := account.PrincipalFor(claims.UserID, account.Role(claims.Role))
	if err != nil {
		abortUnauthorized(c, "Given token not valid for any token type")
		return false
	}

	c.Set(CtxPrincipal, p)
	c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), p.AccountID()))
	return true
}

// PrincipalFromContext returns the identity RequireAuth/OptionalAuth attached.
func PrincipalFromContext(c *gin.Context) (account.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(account.Principal)
	return p, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	p, ok := PrincipalFromContext(c)
	if !ok {
		return "", false
	}
	return p.AccountID(), true
}
