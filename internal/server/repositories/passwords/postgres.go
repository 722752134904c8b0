// Package passwords provides the PostgreSQL-backed password repository.
package passwords

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

// PostgresRepository implements password storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByID returns the password or common.ErrorNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Password, error) {
	query := `
		SELECT id, user_id, revision, share_id, has_shares, created_at, updated_at
		FROM passwords
		WHERE id = $1
	`

	p := &models.Password{}
	var shareID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Revision, &shareID, &p.HasShares, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsMalformedKey(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.ShareID = shareID.String

	return p, nil
}

// MarkShared sets has_shares and moves the revision pointer from
// fromRevision to toRevision. The pointer is left alone when it no longer
// equals fromRevision, so a concurrent revision write is not undone.
func (r *PostgresRepository) MarkShared(ctx context.Context, id, fromRevision, toRevision string) error {
	query := `
		UPDATE passwords
		SET revision = CASE WHEN revision = $2 THEN $3 ELSE revision END,
			has_shares = true, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, fromRevision, toRevision)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectRow(res)
}

// ClearShared resets has_shares without touching any other column.
func (r *PostgresRepository) ClearShared(ctx context.Context, id string) error {
	query := `
		UPDATE passwords
		SET has_shares = false, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
