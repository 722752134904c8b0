// Package users provides read access to the host user directory.
package users

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

func (r *PostgresRepository) Search(ctx context.Context, pattern string, limit int) ([]models.DirectoryUser, error) {
	query :=
		`SELECT id, display_name FROM users
		 WHERE id ILIKE $1 ESCAPE '\' OR display_name ILIKE $1 ESCAPE '\'
		 ORDER BY display_name, id
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, dbx.ContainsPattern(pattern), limit)
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
