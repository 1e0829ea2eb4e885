// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"returnsdesk/internal/models"
	"returnsdesk/internal/storage"
)

// ReturnService defines the operations both front-ends call
type ReturnService interface {
	// Authenticate checks credentials and returns the acting principal
	Authenticate(ctx context.Context, username, password string) (models.Principal, error)

	// ListReturns returns every return in primary-key order
	ListReturns(ctx context.Context, actor models.Principal) ([]models.Return, error)

	// CreateReturn logs a new pending return with an optional image
	CreateReturn(ctx context.Context, actor models.Principal, input models.CreateReturnInput, upload *storage.Upload) (*models.Return, error)

	// UpdateStatus records a warehouse decision on a pending return
	UpdateStatus(ctx context.Context, actor models.Principal, id int64, status string) (*models.Return, error)
}
