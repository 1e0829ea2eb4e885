// Package middleware provides authentication and authorization middleware for the Gin web framework.
package middleware

import (
	"net/http"
	"strings"

	"returnsdesk/internal/config"
	"returnsdesk/internal/models"
	contextutils "returnsdesk/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the authenticated models.Principal
const PrincipalKey = "principal"

// LoginPath is where unauthenticated page requests are sent
const LoginPath = "/login"

// RequireAuth returns a middleware that requires a logged-in session.
// Page requests are redirected to the login form; AJAX requests get 401 JSON.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromSession(sessions.Default(c))
		if !ok {
			if WantsJSON(c) {
				HandleAppError(c, contextutils.ErrUnauthorized)
			} else {
				c.Redirect(http.StatusFound, LoginPath)
			}
			c.Abort()
			return
		}

		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(contextutils.WithUsername(c.Request.Context(), principal.Username))
		c.Next()
	}
}

// RequireRole returns a middleware that lets only the given role through.
// It must run after RequireAuth.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			HandleAppError(c, contextutils.ErrUnauthorized)
			c.Abort()
			return
		}
		if principal.Role != role {
			HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn,
				"Access forbidden", "requires role "+string(role)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by RequireAuth
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// WantsJSON reports whether the client expects a JSON answer rather than a page
func WantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead
}

// PrincipalFromSession reads the username and role saved at login
func PrincipalFromSession(session sessions.Session) (models.Principal, bool) {
	username, ok := session.Get(config.SessionKeyUsername).(string)
	if !ok || username == "" {
		return models.Principal{}, false
	}
	role, ok := session.Get(config.SessionKeyRole).(string)
	if !ok || !models.Role(role).Valid() {
		return models.Principal{}, false
	}
	return models.Principal{Username: username, Role: models.Role(role)}, true
}
