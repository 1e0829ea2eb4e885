package handlers

import (
	"errors"
	"net/http"

	"returnsdesk/internal/config"
	"returnsdesk/internal/middleware"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/serviceinterfaces"
	contextutils "returnsdesk/internal/utils"

	"github.com/gin-gonic/gin"
)

// LoginFailedMessage is shown under the login form after bad credentials
const LoginFailedMessage = "Geçersiz kullanıcı adı veya şifre!"

// AuthHandler handles the login form and logout
type AuthHandler struct {
	service serviceinterfaces.ReturnService
	cfg     *config.Config
	logger  *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(service serviceinterfaces.ReturnService, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// LoginForm renders the login page, or sends a logged-in user to the list
func (h *AuthHandler) LoginForm(c *gin.Context) {
	if _, ok := GetPrincipalFromSession(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{"Error": "", "Username": ""})
}

// Login checks the submitted credentials and starts a session
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer span.End()

	username := c.PostForm("username")
	password := c.PostForm("password")
	span.SetAttributes(observability.AttributeUsername(username))

	principal, err := h.service.Authenticate(ctx, username, password)
	if errors.Is(err, contextutils.ErrInvalidCredentials) {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"Error":    LoginFailedMessage,
			"Username": username,
		})
		return
	}
	if err != nil {
		h.logger.Error(ctx, "Authentication failed unexpectedly", err)
		HandleAppError(c, err)
		return
	}

	if err := SetSessionPrincipal(c, principal); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"username": username})
		HandleAppError(c, contextutils.WrapWithCode(err, contextutils.ErrInternalError, "failed to save session"))
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Logout clears the session and returns to the login form
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := ClearSession(c); err != nil {
		h.logger.Warn(c.Request.Context(), "Failed to clear session", map[string]interface{}{"error": err.Error()})
	}
	c.Redirect(http.StatusFound, middleware.LoginPath)
}
