package passwords

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Password, error)
	MarkShared(ctx context.Context, id, fromRevision, toRevision string) error
	ClearShared(ctx context.Context, id string) error
}
