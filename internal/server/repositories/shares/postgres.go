// Package shares provides the PostgreSQL-backed share repository.
package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

const shareColumns = `id, user_id, password_id, target_password_id, receiver, type, editable, shareable,
		expires, source_updated, target_updated, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Share, error) {
	query := `SELECT ` + shareColumns + `
		FROM shares
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByPasswordAndReceiver(ctx context.Context, passwordID, receiver string) (*models.Share, error) {
	query := `SELECT ` + shareColumns + `
		FROM shares
		WHERE password_id = $1 AND receiver = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, passwordID, receiver))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Share, error) {
	s := &models.Share{}
	var target sql.NullString
	var expires sql.NullTime

	err := row.Scan(
		&s.ID, &s.UserID, &s.PasswordID, &target, &s.Receiver, &s.Type, &s.Editable, &s.Shareable,
		&expires, &s.SourceUpdated, &s.TargetUpdated, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsMalformedKey(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	s.TargetPasswordID = target.String
	if expires.Valid {
		t := expires.Time
		s.Expires = &t
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Share) error {
	query := `
		INSERT INTO shares (id, user_id, password_id, receiver, type, editable, shareable, expires, source_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.PasswordID, s.Receiver, s.Type, s.Editable, s.Shareable,
		nullTime(s.Expires), s.SourceUpdated,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// Update writes the owner-editable attributes of a share.
func (r *PostgresRepository) Update(ctx context.Context, s *models.Share) error {
	query := `
		UPDATE shares
		SET expires = $2, editable = $3, shareable = $4, source_updated = $5, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, s.ID, nullTime(s.Expires), s.Editable, s.Shareable, s.SourceUpdated)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shares WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) CountByPassword(ctx context.Context, passwordID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shares WHERE password_id = $1`, passwordID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
