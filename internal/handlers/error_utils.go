package handlers

import (
	"errors"
	"net/http"
	"strings"

	"returnsdesk/internal/middleware"
	contextutils "returnsdesk/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// HandleAppError handles any error and sends the structured JSON response
func HandleAppError(c *gin.Context, err error) {
	middleware.HandleAppError(c, err)
}

// HandleBindError maps form binding failures onto AppErrors
func HandleBindError(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		HandleAppError(c, contextutils.ErrPayloadTooLarge)
		return
	}
	if missing := missingRequiredFields(err); len(missing) > 0 {
		HandleAppError(c, contextutils.NewAppErrorWithCause(contextutils.ErrMissingRequired.Code, contextutils.ErrMissingRequired.Severity,
			"Missing required field", strings.Join(missing, ", "), err))
		return
	}
	HandleAppError(c, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
		"Validation failed", err.Error(), err))
}

// missingRequiredFields lists the fields that failed a "required" binding rule
func missingRequiredFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	var missing []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	return missing
}

// isBodyTooLarge reports whether err came from the http.MaxBytesReader cap
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart wraps the reader error as text
	return err != nil && strings.Contains(err.Error(), "request body too large")
}
