package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"returnsdesk/internal/config"
	"returnsdesk/internal/export"
	"returnsdesk/internal/middleware"
	"returnsdesk/internal/models"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/serviceinterfaces"
	"returnsdesk/internal/storage"
	contextutils "returnsdesk/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ReturnsHandler serves the listing page and the AJAX endpoints behind it
type ReturnsHandler struct {
	service serviceinterfaces.ReturnService
	store   storage.ImageStore
	cfg     *config.Config
	logger  *observability.Logger
}

// NewReturnsHandler creates a new ReturnsHandler instance
func NewReturnsHandler(service serviceinterfaces.ReturnService, store storage.ImageStore, cfg *config.Config, logger *observability.Logger) *ReturnsHandler {
	return &ReturnsHandler{
		service: service,
		store:   store,
		cfg:     cfg,
		logger:  logger,
	}
}

// Index renders every return with the controls the current role may use
func (h *ReturnsHandler) Index(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "index")
	defer span.End()

	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}

	returns, err := h.service.ListReturns(ctx, principal)
	if err != nil {
		h.logger.Error(ctx, "Failed to list returns", err)
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("returns.count", len(returns)))

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Principal": principal,
		"Returns":   returns,
		"Platforms": h.cfg.Catalog.Platforms,
		"Reasons":   h.cfg.Catalog.Reasons,
		"CanCreate": principal.Role.CanCreate(),
		"CanDecide": principal.Role.CanDecide(),
		"Accept":    acceptAttribute(h.cfg.Uploads.AllowedExtensions),
	})
}

// Add handles the multipart create form
func (h *ReturnsHandler) Add(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "add_return")
	defer span.End()

	principal, _ := middleware.PrincipalFrom(c)

	if h.cfg.Uploads.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Uploads.MaxBytes)
	}

	var input models.CreateReturnInput
	if err := c.ShouldBind(&input); err != nil {
		HandleBindError(c, err)
		return
	}

	var upload *storage.Upload
	fileHeader, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		HandleBindError(c, err)
		return
	default:
		file, err := fileHeader.Open()
		if err != nil {
			HandleAppError(c, contextutils.WrapWithCode(err, contextutils.ErrInvalidInput, "failed to read uploaded image"))
			return
		}
		defer func() { _ = file.Close() }()
		upload = &storage.Upload{
			Filename:    fileHeader.Filename,
			Size:        fileHeader.Size,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Body:        file,
		}
	}

	ret, err := h.service.CreateReturn(ctx, principal, input, upload)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "return": ret})
}

// UpdateStatus records an approve or reject decision
func (h *ReturnsHandler) UpdateStatus(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_status")
	defer span.End()

	principal, _ := middleware.PrincipalFrom(c)

	rawID := strings.TrimSpace(c.PostForm("id"))
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"Validation failed", "id must be a positive integer, got "+strconv.Quote(rawID)))
		return
	}

	ret, err := h.service.UpdateStatus(ctx, principal, id, c.PostForm("status"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "return": ret})
}

// Image streams a stored upload from whichever backend holds it
func (h *ReturnsHandler) Image(c *gin.Context) {
	relPath := storage.PublicPrefix + c.Param("name")

	rc, info, err := h.store.Open(c.Request.Context(), relPath)
	if err != nil {
		if middleware.StatusFor(err) == http.StatusNotFound {
			c.Status(http.StatusNotFound)
			return
		}
		h.logger.Error(c.Request.Context(), "Failed to open image", err, map[string]interface{}{"path": relPath})
		HandleAppError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()

	size := info.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, info.ContentType, rc, map[string]string{
		"Cache-Control": "private, max-age=3600",
	})
}

// Export sends every return as an XLSX attachment
func (h *ReturnsHandler) Export(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_returns")
	defer span.End()

	principal, _ := middleware.PrincipalFrom(c)
	returns, err := h.service.ListReturns(ctx, principal)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReturns(&buf, returns); err != nil {
		h.logger.Error(ctx, "Failed to build workbook", err)
		HandleAppError(c, contextutils.WrapWithCode(err, contextutils.ErrInternalError, "failed to build workbook"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// acceptAttribute turns the extension allowlist into an <input accept> value
func acceptAttribute(exts []string) string {
	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		parts = append(parts, "."+strings.TrimPrefix(strings.ToLower(ext), "."))
	}
	return strings.Join(parts, ",")
}
