package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"returnsdesk/internal/export"
	"returnsdesk/internal/models"
	"returnsdesk/internal/storage"
	contextutils "returnsdesk/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func formInput() models.CreateReturnInput {
	return models.CreateReturnInput{
		OrderID:    "TY-100",
		Product:    "Sweatshirt",
		Brand:      "LC Waikiki",
		Platform:   "Trendyol",
		Reason:     "Beden Uymadı",
		ReturnDate: "2025-05-10",
	}
}

func multipartRequest(t *testing.T, in models.CreateReturnInput, filename string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"order_id":    in.OrderID,
		"product":     in.Product,
		"brand":       in.Brand,
		"platform":    in.Platform,
		"reason":      in.Reason,
		"return_date": in.ReturnDate,
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/add", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return req
}

func TestReturnsHandler_IndexRequiresLogin(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestReturnsHandler_IndexWarehouseSeesDecisionButtons(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, whPrincipal)

	s.service.On("ListReturns", mock.Anything, whPrincipal).Return([]models.Return{
		{ID: 1, OrderID: "TY-1", Product: "Ayakkabı", Status: models.StatusPending, ImagePath: models.NullString("static/uploads/kutu.png")},
		{ID: 2, OrderID: "HB-2", Product: "Mont", Status: models.StatusApproved, ApprovedBy: models.NullString("warehouse")},
	}, nil)

	w := s.do(httptest.NewRequest("GET", "/", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "TY-1")
	assert.Contains(t, body, "HB-2")
	assert.Contains(t, body, `src="/static/uploads/kutu.png"`)
	assert.Contains(t, body, "Onaylandı")
	assert.Equal(t, 1, strings.Count(body, "✅ Onayla"))
	assert.NotContains(t, body, "➕ Yeni İade")
}

func TestReturnsHandler_IndexCustomerServiceSeesCreateForm(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, csPrincipal)

	s.service.On("ListReturns", mock.Anything, csPrincipal).Return([]models.Return{
		{ID: 1, OrderID: "TY-1", Status: models.StatusPending},
	}, nil)

	w := s.do(httptest.NewRequest("GET", "/", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "➕ Yeni İade")
	assert.Contains(t, body, `<option value="Hepsiburada">`)
	assert.Contains(t, body, "Yok")
	assert.NotContains(t, body, "✅ Onayla")
}

func TestReturnsHandler_AddWithImage(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, csPrincipal)

	created := &models.Return{ID: 7, OrderID: "TY-100", Status: models.StatusPending, ImagePath: models.NullString("static/uploads/kutu.png")}
	s.service.On("CreateReturn", mock.Anything, csPrincipal, formInput(), mock.MatchedBy(func(u *storage.Upload) bool {
		if u == nil || u.Filename != "kutu.png" {
			return false
		}
		data, err := io.ReadAll(u.Body)
		return err == nil && string(data) == "png-bytes"
	})).Return(created, nil)

	w := s.do(multipartRequest(t, formInput(), "kutu.png", []byte("png-bytes")), cookie)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	ret := body["return"].(map[string]interface{})
	assert.Equal(t, float64(7), ret["id"])
	assert.Equal(t, "static/uploads/kutu.png", ret["image_path"])
	assert.Equal(t, "Bekliyor", ret["status_label"])
}

func TestReturnsHandler_AddWithoutImage(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, csPrincipal)

	s.service.On("CreateReturn", mock.Anything, csPrincipal, formInput(), (*storage.Upload)(nil)).
		Return(&models.Return{ID: 8, Status: models.StatusPending}, nil)

	w := s.do(multipartRequest(t, formInput(), "", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeJSON(t, w)["return"].(map[string]interface{})["image_path"])
}

func TestReturnsHandler_AddMissingFieldIs400(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, csPrincipal)

	in := formInput()
	in.Brand = ""
	w := s.do(multipartRequest(t, in, "", nil), cookie)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeMissingRequired), body["code"])
	assert.Equal(t, "Brand", body["details"])
}

func TestReturnsHandler_AddServiceValidationIs400(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, csPrincipal)

	s.service.On("CreateReturn", mock.Anything, csPrincipal, formInput(), (*storage.Upload)(nil)).
		Return(nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn, "Validation failed", "Brand (required)"))

	w := s.do(multipartRequest(t, formInput(), "", nil), cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReturnsHandler_AddForbiddenForWarehouse(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, whPrincipal)

	w := s.do(multipartRequest(t, formInput(), "", nil), cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decodeJSON(t, w)["success"])
}

func TestReturnsHandler_AddUnauthenticatedIs401(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(multipartRequest(t, formInput(), "", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReturnsHandler_AddTooLarge(t *testing.T) {
	cfg := newTestConfig()
	cfg.Uploads.MaxBytes = 512
	s := newTestServer(t, cfg)
	cookie := s.login(t, csPrincipal)

	w := s.do(multipartRequest(t, formInput(), "big.png", bytes.Repeat([]byte("x"), 4096)), cookie)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestReturnsHandler_UpdateStatus(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, whPrincipal)

	s.service.On("UpdateStatus", mock.Anything, whPrincipal, int64(3), "Approved").
		Return(&models.Return{ID: 3, Status: models.StatusApproved, ApprovedBy: models.NullString("warehouse")}, nil)

	w := s.do(formRequest("POST", "/update_status", url.Values{"id": {"3"}, "status": {"Approved"}}), cookie)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	ret := body["return"].(map[string]interface{})
	assert.Equal(t, "Approved", ret["status"])
	assert.Equal(t, "warehouse", ret["approved_by"])
}

func TestReturnsHandler_UpdateStatusErrors(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, whPrincipal)

	s.service.On("UpdateStatus", mock.Anything, whPrincipal, int64(4), "Rejected").Return(nil, contextutils.ErrConflict)
	s.service.On("UpdateStatus", mock.Anything, whPrincipal, int64(99), "Rejected").Return(nil, contextutils.ErrRecordNotFound)

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"already decided", "4", http.StatusConflict},
		{"unknown id", "99", http.StatusNotFound},
		{"non-numeric id", "abc", http.StatusBadRequest},
		{"missing id", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(formRequest("POST", "/update_status", url.Values{"id": {tt.id}, "status": {"Rejected"}}), cookie)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestReturnsHandler_UpdateStatusForbiddenForCustomerService(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, csPrincipal)

	w := s.do(formRequest("POST", "/update_status", url.Values{"id": {"1"}, "status": {"Approved"}}), cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReturnsHandler_Image(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, csPrincipal)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	rel, err := s.store.Save(context.Background(), storage.Upload{Filename: "kutu.png", Body: bytes.NewReader(png)})
	require.NoError(t, err)
	require.Equal(t, "static/uploads/kutu.png", rel)

	w := s.do(httptest.NewRequest("GET", "/"+rel, nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, png, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = s.do(httptest.NewRequest("GET", "/static/uploads/missing.png", nil), cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest("GET", "/"+rel, nil))
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestReturnsHandler_Export(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, whPrincipal)

	s.service.On("ListReturns", mock.Anything, whPrincipal).Return([]models.Return{
		{ID: 1, OrderID: "TY-1", Status: models.StatusPending},
	}, nil)

	w := s.do(httptest.NewRequest("GET", "/export.xlsx", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "iadeler_")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestReturnsHandler_ExportListFailure(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, whPrincipal)

	s.service.On("ListReturns", mock.Anything, whPrincipal).
		Return(nil, contextutils.WrapWithCode(errors.New("db down"), contextutils.ErrDatabaseQuery, "failed to list returns"))

	w := s.do(httptest.NewRequest("GET", "/export.xlsx", nil), cookie)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAcceptAttribute(t *testing.T) {
	assert.Equal(t, ".png,.jpg", acceptAttribute([]string{"PNG", ".jpg"}))
	assert.Equal(t, "", acceptAttribute(nil))
}
