package users

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Repository interface {
	// Search returns up to limit users whose id or display name contains
	// pattern, ordered by display name.
	Search(ctx context.Context, pattern string, limit int) ([]models.DirectoryUser, error)
}
