package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "returnsdesk/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type bindTarget struct {
	OrderID string `validate:"required"`
	Product string `validate:"required"`
	Brand   string `validate:"max=3"`
}

func TestHandleBindError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	missing := validator.New().Struct(bindTarget{Brand: "ok"})
	tooLong := validator.New().Struct(bindTarget{OrderID: "1", Product: "p", Brand: "toolong"})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   contextutils.ErrorCode
		wantDetail string
	}{
		{"required fields", missing, http.StatusBadRequest, contextutils.ErrorCodeMissingRequired, "OrderID, Product"},
		{"other rule", tooLong, http.StatusBadRequest, contextutils.ErrorCodeValidationFailed, ""},
		{"malformed form", errors.New("malformed multipart"), http.StatusBadRequest, contextutils.ErrorCodeValidationFailed, ""},
		{"body cap", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, contextutils.ErrorCodePayloadTooLarge, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/add", nil)

			HandleBindError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeJSON(t, w)
			assert.Equal(t, string(tt.wantCode), body["code"])
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["details"])
			}
		})
	}
}
