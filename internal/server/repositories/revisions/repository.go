package revisions

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Revision, error)
	Create(ctx context.Context, revision *models.Revision) error
}
