// Package models defines data structures used throughout the returns desk.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Return is a customer product-return record
type Return struct {
	ID         int64          `json:"id" db:"id"`
	OrderID    string         `json:"order_id" db:"order_id"`
	Product    string         `json:"product" db:"product"`
	Brand      string         `json:"brand" db:"brand"`
	Platform   string         `json:"platform" db:"platform"`
	Reason     string         `json:"reason" db:"reason"`
	ReturnDate string         `json:"return_date" db:"return_date"`
	Status     Status         `json:"status" db:"status"`
	ImagePath  sql.NullString `json:"image_path" db:"image_path"`
	ApprovedBy sql.NullString `json:"approved_by" db:"approved_by"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// IsPending reports whether the return still awaits a warehouse decision
func (r Return) IsPending() bool {
	return r.Status == StatusPending
}

// MarshalJSON customizes JSON marshaling for Return to render nullable columns as null or string
func (r Return) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID          int64     `json:"id"`
		OrderID     string    `json:"order_id"`
		Product     string    `json:"product"`
		Brand       string    `json:"brand"`
		Platform    string    `json:"platform"`
		Reason      string    `json:"reason"`
		ReturnDate  string    `json:"return_date"`
		Status      Status    `json:"status"`
		StatusLabel string    `json:"status_label"`
		ImagePath   *string   `json:"image_path"`
		ApprovedBy  *string   `json:"approved_by"`
		CreatedAt   time.Time `json:"created_at"`
	}{
		ID:          r.ID,
		OrderID:     r.OrderID,
		Product:     r.Product,
		Brand:       r.Brand,
		Platform:    r.Platform,
		Reason:      r.Reason,
		ReturnDate:  r.ReturnDate,
		Status:      r.Status,
		StatusLabel: r.Status.Label(),
		ImagePath:   nullStringToPointer(r.ImagePath),
		ApprovedBy:  nullStringToPointer(r.ApprovedBy),
		CreatedAt:   r.CreatedAt,
	})
}

// CreateReturnInput carries the form fields for a new return.
// Platform and Reason are not checked against the catalog.
type CreateReturnInput struct {
	OrderID    string `json:"order_id" form:"order_id" binding:"required" validate:"required"`
	Product    string `json:"product" form:"product" binding:"required" validate:"required"`
	Brand      string `json:"brand" form:"brand" binding:"required" validate:"required"`
	Platform   string `json:"platform" form:"platform" binding:"required" validate:"required"`
	Reason     string `json:"reason" form:"reason" binding:"required" validate:"required"`
	ReturnDate string `json:"return_date" form:"return_date" binding:"required" validate:"required"`
}

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

// NullString wraps a non-empty string as a valid sql.NullString
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
