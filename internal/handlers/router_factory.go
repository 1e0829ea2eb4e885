package handlers

import (
	"net/http"

	"returnsdesk/internal/config"
	"returnsdesk/internal/middleware"
	"returnsdesk/internal/models"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/serviceinterfaces"
	"returnsdesk/internal/storage"
	"returnsdesk/internal/version"
	contextutils "returnsdesk/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// ServiceName identifies the web server in health, version and trace data
const ServiceName = "returnsdesk"

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(
	cfg *config.Config,
	service serviceinterfaces.ReturnService,
	store storage.ImageStore,
	logger *observability.Logger,
) (*gin.Engine, error) {
	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(observability.RequestLogger(logger))

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get(ServiceName))
	})

	router.RedirectTrailingSlash = false
	if cfg.Uploads.MaxBytes > 0 {
		router.MaxMultipartMemory = cfg.Uploads.MaxBytes
	}

	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Requested-With"}
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		router.Use(cors.New(corsConfig))
	}

	sessionStore := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	}
	sessionStore.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, sessionStore))

	// OpenTelemetry tracing and context propagation with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling(ServiceName)...)

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to parse templates")
	}
	router.SetHTMLTemplate(tmpl)

	loginLimit, err := middleware.LoginRateLimit(cfg.Auth.LoginRateLimit, logger)
	if err != nil {
		return nil, err
	}

	authHandler := NewAuthHandler(service, cfg, logger)
	returnsHandler := NewReturnsHandler(service, store, cfg, logger)

	router.GET("/login", authHandler.LoginForm)
	router.POST("/login", loginLimit, authHandler.Login)
	router.GET("/logout", authHandler.Logout)

	authed := router.Group("/", middleware.RequireAuth())
	{
		authed.GET("/", returnsHandler.Index)
		authed.GET("/export.xlsx", returnsHandler.Export)
		authed.GET("/"+storage.PublicPrefix+"/*name", returnsHandler.Image)
		authed.POST("/add", middleware.RequireRole(models.RoleCustomerService), returnsHandler.Add)
		authed.POST("/update_status", middleware.RequireRole(models.RoleWarehouse), returnsHandler.UpdateStatus)
	}

	return router, nil
}
