// Package groups provides read access to host group membership.
package groups

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT group_id FROM group_members WHERE user_id = $1 ORDER BY group_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresRepository) SearchMembers(ctx context.Context, groupID, pattern string, limit int) ([]models.DirectoryUser, error) {
	query := `
		SELECT u.id, u.display_name
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1 AND (u.id ILIKE $2 ESCAPE '\' OR u.display_name ILIKE $2 ESCAPE '\')
		ORDER BY u.display_name, u.id
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, groupID, dbx.ContainsPattern(pattern), limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.DirectoryUser
	for rows.Next() {
		var u models.DirectoryUser
		if err := rows.Scan(&u.ID, &u.DisplayName); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
