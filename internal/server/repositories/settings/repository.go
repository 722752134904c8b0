package settings

import "context"

// Repository reads host app settings. Values are written by the host
// administration tooling, never by this service.
type Repository interface {
	// Get returns the stored value or common.ErrorNotFound.
	Get(ctx context.Context, app, key string) (string, error)
}
