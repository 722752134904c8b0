package shares

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Share, error)
	// FindByPasswordAndReceiver returns common.ErrorNotFound when the
	// password is not shared with receiver.
	FindByPasswordAndReceiver(ctx context.Context, passwordID, receiver string) (*models.Share, error)
	// Create returns common.ErrorAlreadyExists when a share for the same
	// (password, receiver) pair already exists.
	Create(ctx context.Context, share *models.Share) error
	Update(ctx context.Context, share *models.Share) error
	Delete(ctx context.Context, id string) error
	CountByPassword(ctx context.Context, passwordID string) (int, error)
}
