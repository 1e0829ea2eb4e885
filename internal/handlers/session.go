package handlers

import (
	"returnsdesk/internal/config"
	"returnsdesk/internal/middleware"
	"returnsdesk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// GetPrincipalFromSession retrieves the logged-in principal from the session.
// Returns false if not authenticated or if the stored values are invalid.
func GetPrincipalFromSession(c *gin.Context) (models.Principal, bool) {
	return middleware.PrincipalFromSession(sessions.Default(c))
}

// SetSessionPrincipal stores the username and role after a successful login
func SetSessionPrincipal(c *gin.Context, p models.Principal) error {
	session := sessions.Default(c)
	session.Set(config.SessionKeyUsername, p.Username)
	session.Set(config.SessionKeyRole, string(p.Role))
	return session.Save()
}

// ClearSession drops every key and expires the cookie
func ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: config.SessionPath, MaxAge: -1})
	return session.Save()
}
