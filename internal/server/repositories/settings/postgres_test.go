package settings

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getQuery = `SELECT value FROM app_config WHERE app = \$1 AND key = \$2`

func newRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestGet(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(getQuery).WithArgs("core", "shareapi_allow_resharing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("no"))
	mock.ExpectQuery(getQuery).WithArgs("core", "missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(getQuery).WithArgs("core", "broken").WillReturnError(errors.New("timeout"))

	v, err := repo.Get(context.Background(), "core", "shareapi_allow_resharing")
	require.NoError(t, err)
	assert.Equal(t, "no", v)

	_, err = repo.Get(context.Background(), "core", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Get(context.Background(), "core", "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: timeout")
	require.NoError(t, mock.ExpectationsWereMet())
}
