// Package revisions provides the PostgreSQL-backed password revision repository.
package revisions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Revision, error) {
	query := `
		SELECT id, password_id, user_id, cse_type, sse_type, sse_key, data, nonce, hash, created_at
		FROM password_revisions
		WHERE id = $1
	`

	rev := &models.Revision{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rev.ID, &rev.PasswordID, &rev.UserID, &rev.CseType, &rev.SseType,
		&rev.SseKey, &rev.Data, &rev.Nonce, &rev.Hash, &rev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsMalformedKey(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rev, nil
}

// Create inserts a new revision. CreatedAt is filled from the database.
func (r *PostgresRepository) Create(ctx context.Context, rev *models.Revision) error {
	query := `
		INSERT INTO password_revisions (id, password_id, user_id, cse_type, sse_type, sse_key, data, nonce, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rev.ID, rev.PasswordID, rev.UserID, rev.CseType, rev.SseType,
		rev.SseKey, rev.Data, rev.Nonce, rev.Hash,
	).Scan(&rev.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
