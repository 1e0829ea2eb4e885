package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturn_MarshalJSON(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ret      Return
		expected string
	}{
		{
			name: "decided return with image",
			ret: Return{
				ID: 1, OrderID: "TY-1", Product: "Sneaker", Brand: "Nike", Platform: "Trendyol",
				Reason: "Beden Uymadı", ReturnDate: "2024-03-01", Status: StatusApproved,
				ImagePath:  sql.NullString{String: "static/uploads/a.png", Valid: true},
				ApprovedBy: sql.NullString{String: "warehouse", Valid: true},
				CreatedAt:  created,
			},
			expected: `{"id":1,"order_id":"TY-1","product":"Sneaker","brand":"Nike","platform":"Trendyol","reason":"Beden Uymadı","return_date":"2024-03-01","status":"Approved","status_label":"Onaylandı","image_path":"static/uploads/a.png","approved_by":"warehouse","created_at":"2024-03-01T09:30:00Z"}`,
		},
		{
			name: "pending return has null image and approver",
			ret: Return{
				ID: 2, OrderID: "A-2", Product: "Kettle", Brand: "Arzum", Platform: "A101",
				Reason: "Diğer", ReturnDate: "2024-03-02", Status: StatusPending, CreatedAt: created,
			},
			expected: `{"id":2,"order_id":"A-2","product":"Kettle","brand":"Arzum","platform":"A101","reason":"Diğer","return_date":"2024-03-02","status":"Pending","status_label":"Bekliyor","image_path":null,"approved_by":null,"created_at":"2024-03-01T09:30:00Z"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ret)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   Status
		wantOK bool
	}{
		{"Approved", StatusApproved, true},
		{"approved", StatusApproved, true},
		{" Rejected ", StatusRejected, true},
		{"Onaylandı", StatusApproved, true},
		{"Reddedildi", StatusRejected, true},
		{"Bekliyor", StatusPending, true},
		{"Done", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseStatus(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_IsDecision(t *testing.T) {
	assert.True(t, StatusApproved.IsDecision())
	assert.True(t, StatusRejected.IsDecision())
	assert.False(t, StatusPending.IsDecision())
	assert.False(t, Status("Archived").IsDecision())
}

func TestRole(t *testing.T) {
	assert.True(t, RoleCustomerService.Valid())
	assert.True(t, RoleWarehouse.Valid())
	assert.False(t, Role("admin").Valid())

	assert.True(t, RoleCustomerService.CanCreate())
	assert.False(t, RoleCustomerService.CanDecide())
	assert.True(t, RoleWarehouse.CanDecide())
	assert.False(t, RoleWarehouse.CanCreate())
}

func TestNullString(t *testing.T) {
	assert.False(t, NullString("").Valid)
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, NullString("x"))
}
