package serviceinterfaces

import (
	"context"

	"returnsdesk/internal/models"
)

// UserDirectory resolves credentials to a role
type UserDirectory interface {
	Verify(ctx context.Context, username, password string) (models.Role, bool)
}
