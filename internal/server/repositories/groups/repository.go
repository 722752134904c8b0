package groups

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Repository interface {
	GroupIDsForUser(ctx context.Context, userID string) ([]string, error)
	// SearchMembers returns up to limit members of groupID whose id or
	// display name contains pattern, ordered by display name.
	SearchMembers(ctx context.Context, groupID, pattern string, limit int) ([]models.DirectoryUser, error)
}
